package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"hillchart/internal/service"
)

// MaxLetters is the number of features that get a letter.
const MaxLetters = 26

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Letter    rune // 0 if no letter, 'a'-'z' otherwise
	TaskNum   int  // 1-based task number
	HasLetter bool // true if a feature letter was provided
}

func (r TaskRef) String() string {
	if r.HasLetter {
		return fmt.Sprintf("%c%d", r.Letter, r.TaskNum)
	}
	return strconv.Itoa(r.TaskNum)
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = usageError("task reference required")

// ParseTaskRef parses one task reference from the front of args and
// returns how many args it used.
//
// Accepted forms:
//   - "3": task 3 of the feature given by --feature
//   - "a3": task 3 of feature a
//   - "a" "3": same, split across two args
func ParseTaskRef(args []string) (TaskRef, int, error) {
	if len(args) == 0 {
		return TaskRef{}, 0, ErrTaskRefRequired
	}

	first := args[0]

	if isAllDigits(first) {
		num, err := strconv.Atoi(first)
		if err != nil {
			return TaskRef{}, 0, usagef("invalid task reference: %s", first)
		}
		return TaskRef{TaskNum: num}, 1, nil
	}

	if first != "" && isLetter(rune(first[0])) {
		letter := rune(first[0])

		if len(first) > 1 && isAllDigits(first[1:]) {
			num, err := strconv.Atoi(first[1:])
			if err != nil {
				return TaskRef{}, 0, usagef("invalid task reference: %s", first)
			}
			return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, 1, nil
		}

		if len(first) == 1 {
			if len(args) < 2 {
				return TaskRef{}, 0, ErrTaskRefRequired
			}
			if isAllDigits(args[1]) {
				num, err := strconv.Atoi(args[1])
				if err != nil {
					return TaskRef{}, 0, usagef("invalid task reference: %s", args[1])
				}
				return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, 2, nil
			}
		}
	}

	return TaskRef{}, 0, usagef("invalid task reference: %s", first)
}

// ParseTaskRefs parses every arg as a sequence of task references.
func ParseTaskRefs(args []string) ([]TaskRef, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}
	var refs []TaskRef
	for len(args) > 0 {
		ref, n, err := ParseTaskRef(args)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
		args = args[n:]
	}
	return refs, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isLetter returns true if r is a lowercase letter a-z.
func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// Letter returns the letter for the i-th feature in listing order, or 0
// past the last letter.
func Letter(i int) rune {
	if i < 0 || i >= MaxLetters {
		return 0
	}
	return 'a' + rune(i)
}

// ResolveFeatureByLetter maps a letter to the feature shown with it by the
// features command.
func ResolveFeatureByLetter(ctx context.Context, svc service.Service, letter rune) (service.Feature, error) {
	features, err := svc.ListFeatures(ctx)
	if err != nil {
		return service.Feature{}, err
	}
	i := int(letter - 'a')
	if !isLetter(letter) || i >= len(features) {
		return service.Feature{}, usagef("feature letter not found: %c", letter)
	}
	return features[i], nil
}

// resolveFeatureArg accepts either a feature letter or a feature name.
func resolveFeatureArg(ctx context.Context, svc service.Service, args []string) (service.Feature, error) {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return service.Feature{}, usagef("feature required")
	}
	if len(name) == 1 && isLetter(rune(name[0])) {
		f, err := ResolveFeatureByLetter(ctx, svc, rune(name[0]))
		var ue usageError
		if err == nil || !errors.As(err, &ue) {
			return f, err
		}
	}
	return svc.ResolveFeature(ctx, name)
}

// resolveTarget picks the feature a task ref points into: --feature, then
// the ref's letter, then the only feature if there is exactly one.
func resolveTarget(ctx context.Context, svc service.Service, featureName string, ref TaskRef) (service.Feature, error) {
	featureName = strings.TrimSpace(featureName)
	switch {
	case featureName != "" && ref.HasLetter:
		return service.Feature{}, usagef("cannot use both --feature and feature letter")
	case featureName != "":
		return svc.ResolveFeature(ctx, featureName)
	case ref.HasLetter:
		return ResolveFeatureByLetter(ctx, svc, ref.Letter)
	}

	features, err := svc.ListFeatures(ctx)
	if err != nil {
		return service.Feature{}, err
	}
	if len(features) != 1 {
		return service.Feature{}, usagef("feature required (use a letter or --feature)")
	}
	return features[0], nil
}
