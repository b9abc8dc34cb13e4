package commands

import (
	"context"

	"hillchart/internal/service"
)

type taskCache map[int64][]service.Task // featureID -> tasks in display order

// findTaskByNumber finds a task by its 1-based number in a feature, caching
// each feature's task list so several refs cost one backend call.
func findTaskByNumber(ctx context.Context, svc service.Service, featureID int64, num int, cache taskCache) (service.Task, error) {
	if num < 1 {
		return service.Task{}, usagef("task number out of range: %d", num)
	}

	tasks, ok := cache[featureID]
	if !ok {
		var err error
		tasks, err = svc.ListTasks(ctx, featureID)
		if err != nil {
			return service.Task{}, err
		}
		if cache != nil {
			cache[featureID] = tasks
		}
	}

	if num > len(tasks) {
		return service.Task{}, usagef("task number out of range: %d", num)
	}
	return tasks[num-1], nil
}

// lookupRef resolves a task ref to the task it names.
func lookupRef(ctx context.Context, svc service.Service, featureName string, ref TaskRef, cache taskCache) (service.Task, error) {
	f, err := resolveTarget(ctx, svc, featureName, ref)
	if err != nil {
		return service.Task{}, err
	}
	return findTaskByNumber(ctx, svc, f.ID, ref.TaskNum, cache)
}
