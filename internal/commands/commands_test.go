package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"hillchart/internal/backend/sqlstore"
	"hillchart/internal/commands"
	"hillchart/internal/config"
	"hillchart/internal/exitcode"
	"hillchart/internal/progress"
	"hillchart/internal/service"
	"hillchart/internal/testutil"
)

// testEnv builds an Env around a FakeService.
func testEnv(t *testing.T, svc *testutil.FakeService, quiet bool) *commands.Env {
	t.Helper()
	env := &commands.Env{
		Config: &config.Config{Dir: t.TempDir(), Quiet: quiet},
		Log:    zap.NewNop(),
	}
	if svc != nil {
		env.Service = svc
	}
	return env
}

// runCommand is a helper to run a command with FakeService.
func runCommand(t *testing.T, cmd commands.Command, svc *testutil.FakeService, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()
	return runEnv(t, cmd, testEnv(t, svc, quiet), args)
}

func runEnv(t *testing.T, cmd commands.Command, env *commands.Env, args []string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), env, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func expectCode(t *testing.T, want, got int, stderr string) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d (stderr %q)", want, got, stderr)
	}
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "hillchart 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	for _, want := range []string{"Usage:", "hillchart addfeature", "alias: createfeature", "Task refs:", "--db <path>"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestHelpCommand_OneCommand(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.MoveCmd{}); err != nil {
		t.Fatal(err)
	}
	help := commands.NewHelpCmd(r)

	stdout, stderr, code := runCommand(t, help, nil, []string{"mv"}, false)
	expectCode(t, exitcode.Success, code, stderr)
	if !strings.HasPrefix(stdout, "Usage:\n  hillchart move") {
		t.Errorf("unexpected help: %q", stdout)
	}

	_, stderr, code = runCommand(t, help, nil, []string{"nope"}, false)
	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: unknown command: nope\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.AddCmd{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&commands.AddCmd{}); err == nil {
		t.Error("expected duplicate name error")
	}

	cmd, ok := r.Find("create")
	if !ok || cmd.Name() != "add" {
		t.Errorf("alias lookup failed: %v %v", cmd, ok)
	}
	if got := len(r.All()); got != 1 {
		t.Errorf("expected 1 command, got %d", got)
	}
}

// Tests for features command
func TestFeaturesCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	checkout := svc.AddFeature("Checkout")
	svc.AddFeature("Search")
	svc.AddTask(checkout, "Design", true, 100)
	svc.AddTask(checkout, "Build", false, 0)

	stdout, stderr, code := runCommand(t, &commands.FeaturesCmd{}, svc, nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	expected := "a  Search [todo]  no tasks\n" +
		"b  Checkout [todo]  1/2 done (50%), avg 50, at-peak\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestFeaturesCommand_Empty(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, code := runCommand(t, &commands.FeaturesCmd{}, svc, nil, false)
	expectCode(t, exitcode.Success, code, "")
	if stdout != "no features found\n" {
		t.Errorf("unexpected output: %q", stdout)
	}

	stdout, _, _ = runCommand(t, &commands.FeaturesCmd{}, svc, nil, true)
	if stdout != "" {
		t.Errorf("expected no output when quiet, got %q", stdout)
	}
}

func TestFeaturesCommand_BackendError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListFeaturesErr = errors.New("connection reset")

	_, stderr, code := runCommand(t, &commands.FeaturesCmd{}, svc, nil, false)
	expectCode(t, exitcode.BackendError, code, stderr)
	if stderr != "error: backend error: connection reset\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

// Tests for tasks command
func TestTasksCommand_ByLetterAndName(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	svc.AddTask(f, "Design", true, 100)
	svc.AddTask(f, "Build", false, 0)

	expected := "------------\nCheckout [todo]\n------------\n" +
		"   1  [x]   100  Design\n" +
		"   2  [ ]     0  Build\n"

	for _, arg := range []string{"a", "checkout"} {
		stdout, stderr, code := runCommand(t, &commands.TasksCmd{}, svc, []string{arg}, false)
		expectCode(t, exitcode.Success, code, stderr)
		if stdout != expected {
			t.Errorf("tasks %s: expected %q, got %q", arg, expected, stdout)
		}
	}
}

func TestTasksCommand_NotFound(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := runCommand(t, &commands.TasksCmd{}, svc, []string{"Nope"}, false)
	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: not found: feature Nope\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}

	_, stderr, code = runCommand(t, &commands.TasksCmd{}, svc, nil, false)
	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: feature required\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

// Tests for add command
func TestAddCommand_SoleFeature(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")

	cmd := &commands.AddCmd{}
	stdout, stderr, code := runCommand(t, cmd, svc, []string{"Write", "tests"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	tasks, _ := svc.ListTasks(context.Background(), f)
	if len(tasks) != 1 || tasks[0].Title != "Write tests" || tasks[0].Position != 0 {
		t.Errorf("unexpected tasks: %+v", tasks)
	}
}

func TestAddCommand_NeedsFeatureWhenSeveral(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddFeature("Checkout")
	search := svc.AddFeature("Search")

	_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"x"}, false)
	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: feature required (use a letter or --feature)\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}

	cmd := &commands.AddCmd{}
	cmd.SetFeatureName("search")
	_, stderr, code = runCommand(t, cmd, svc, []string{"Index"}, true)
	expectCode(t, exitcode.Success, code, stderr)
	tasks, _ := svc.ListTasks(context.Background(), search)
	if len(tasks) != 1 {
		t.Errorf("expected task in Search, got %+v", tasks)
	}
}

func TestAddCommand_NoTitle(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddFeature("Checkout")

	_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"  "}, false)
	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: title required\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

// Tests for done and undone commands
func TestDoneCommand_MultipleRefs(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	t1 := svc.AddTask(f, "one", false, 10)
	t2 := svc.AddTask(f, "two", false, 20)
	t3 := svc.AddTask(f, "three", false, 30)

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"a1", "a", "3"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	for id, want := range map[int64]bool{t1: true, t2: false, t3: true} {
		task, _ := svc.Task(id)
		if task.Completed != want {
			t.Errorf("task %d completed = %v, want %v", id, task.Completed, want)
		}
	}
}

func TestDoneCommand_BadRefLeavesTasksAlone(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	t1 := svc.AddTask(f, "one", false, 10)

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"a1", "a9"}, false)
	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: task number out of range: 9\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
	if task, _ := svc.Task(t1); task.Completed {
		t.Error("no task should change when a ref fails")
	}
}

func TestDoneCommand_Errors(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	svc.AddTask(f, "one", false, 10)

	tests := []struct {
		name    string
		feature string
		args    []string
		stderr  string
	}{
		{"no ref", "", nil, "error: task reference required\n"},
		{"letter only", "", []string{"a"}, "error: task reference required\n"},
		{"invalid", "", []string{"zz"}, "error: invalid task reference: zz\n"},
		{"zero", "", []string{"a0"}, "error: task number out of range: 0\n"},
		{"unknown letter", "", []string{"c1"}, "error: feature letter not found: c\n"},
		{"flag and letter", "Checkout", []string{"a1"}, "error: cannot use both --feature and feature letter\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &commands.DoneCmd{}
			cmd.SetFeatureName(tt.feature)
			_, stderr, code := runCommand(t, cmd, svc, tt.args, false)
			expectCode(t, exitcode.UserError, code, stderr)
			if stderr != tt.stderr {
				t.Errorf("expected %q, got %q", tt.stderr, stderr)
			}
		})
	}
}

func TestUndoneCommand_CoupledResetsPosition(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.Policy = progress.Coupled
	f := svc.AddFeature("Checkout")
	id := svc.AddTask(f, "one", true, 100)

	cmd := &commands.UndoneCmd{}
	cmd.SetFeatureName("Checkout")
	_, stderr, code := runCommand(t, cmd, svc, []string{"1"}, true)

	expectCode(t, exitcode.Success, code, stderr)
	task, _ := svc.Task(id)
	if task.Completed || task.Position != progress.ResetPosition {
		t.Errorf("expected reopened task at %v, got %+v", progress.ResetPosition, task)
	}
}

// Tests for move command
func TestMoveCommand_Position(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	id := svc.AddTask(f, "one", false, 10)

	tests := []struct {
		args []string
		want float64
	}{
		{[]string{"a1", "70"}, 70},
		{[]string{"a", "1", "150"}, 100},
		{[]string{"1", "-5"}, 0},
	}
	for _, tt := range tests {
		_, stderr, code := runCommand(t, &commands.MoveCmd{}, svc, tt.args, true)
		expectCode(t, exitcode.Success, code, stderr)
		if task, _ := svc.Task(id); task.Position != tt.want {
			t.Errorf("move %v: position = %v, want %v", tt.args, task.Position, tt.want)
		}
	}
}

func TestMoveCommand_Pixel(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	id := svc.AddTask(f, "one", false, 10)

	cmd := &commands.MoveCmd{}
	cmd.SetOptions("", "500", 100)
	_, stderr, code := runCommand(t, cmd, svc, []string{"a1"}, true)

	expectCode(t, exitcode.Success, code, stderr)
	if task, _ := svc.Task(id); task.Position != 50 {
		t.Errorf("expected the peak (50), got %v", task.Position)
	}
}

func TestMoveCommand_Errors(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	svc.AddTask(f, "one", false, 10)

	tests := []struct {
		name   string
		pixel  string
		args   []string
		stderr string
	}{
		{"no position", "", []string{"a1"}, "error: position required\n"},
		{"bad position", "", []string{"a1", "high"}, "error: invalid position: high\n"},
		{"extra arg", "", []string{"a1", "1", "2"}, "error: unexpected argument: 2\n"},
		{"nan", "", []string{"a1", "NaN"}, "error: invalid: position is not a finite number\n"},
		{"pixel and position", "10", []string{"a1", "5"}, "error: cannot use both --pixel and a position\n"},
		{"bad pixel", "left", []string{"a1"}, "error: invalid pixel: left\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &commands.MoveCmd{}
			cmd.SetOptions("", tt.pixel, 0)
			_, stderr, code := runCommand(t, cmd, svc, tt.args, false)
			expectCode(t, exitcode.UserError, code, stderr)
			if stderr != tt.stderr {
				t.Errorf("expected %q, got %q", tt.stderr, stderr)
			}
		})
	}
}

// Tests for rm command
func TestRmCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	id := svc.AddTask(f, "one", false, 10)
	svc.AddTask(f, "two", false, 20)

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, svc, []string{"a1"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	if _, ok := svc.Task(id); ok {
		t.Error("task should be deleted")
	}
}

func TestRmCommand_NoRef(t *testing.T) {
	svc := testutil.NewFakeService()
	_, stderr, code := runCommand(t, &commands.RmCmd{}, svc, nil, false)
	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: task reference required\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

// Tests for addfeature command
func TestAddFeatureCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.AddFeatureCmd{}
	cmd.SetOptions("Pay by card", "2025-03-08", "In-Progress")
	stdout, stderr, code := runCommand(t, cmd, svc, []string{"Checkout"}, false)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	f, err := svc.ResolveFeature(context.Background(), "checkout")
	if err != nil {
		t.Fatal(err)
	}
	if f.Status != service.StatusInProgress || f.Description != "Pay by card" {
		t.Errorf("unexpected feature: %+v", f)
	}
	if f.DueDate == nil || f.DueDate.Format("2006-01-02") != "2025-03-08" {
		t.Errorf("unexpected due date: %v", f.DueDate)
	}
}

func TestAddFeatureCommand_Errors(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddFeature("Checkout")

	tests := []struct {
		name   string
		due    string
		status string
		args   []string
		stderr string
	}{
		{"no name", "", "", nil, "error: feature name required\n"},
		{"exists", "", "", []string{"checkout"}, "error: feature already exists: checkout\n"},
		{"bad due", "2025-13-01", "", []string{"New"}, "error: invalid due date: 2025-13-01 (want YYYY-MM-DD)\n"},
		{"bad status", "", "paused", []string{"New"}, "error: invalid: unknown status: paused\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &commands.AddFeatureCmd{}
			cmd.SetOptions("", tt.due, tt.status)
			_, stderr, code := runCommand(t, cmd, svc, tt.args, false)
			expectCode(t, exitcode.UserError, code, stderr)
			if stderr != tt.stderr {
				t.Errorf("expected %q, got %q", tt.stderr, stderr)
			}
		})
	}
}

// Tests for rmfeature command
func TestRmFeatureCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	svc.AddTask(f, "one", false, 10)
	svc.AddFeature("Empty")

	_, stderr, code := runCommand(t, &commands.RmFeatureCmd{}, svc, []string{"Checkout"}, false)
	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: feature not empty (use --force)\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}

	_, stderr, code = runCommand(t, &commands.RmFeatureCmd{}, svc, []string{"Empty"}, true)
	expectCode(t, exitcode.Success, code, stderr)

	cmd := &commands.RmFeatureCmd{}
	cmd.SetForce(true)
	_, stderr, code = runCommand(t, cmd, svc, []string{"Checkout"}, true)
	expectCode(t, exitcode.Success, code, stderr)

	if names := svc.FeatureNames(); len(names) != 0 {
		t.Errorf("expected no features, got %v", names)
	}
}

// Tests for stats command
func TestStatsCommand_Text(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	svc.AddTask(f, "one", true, 60)
	svc.AddTask(f, "two", false, 70)
	svc.AddFeature("Empty")

	stdout, stderr, code := runCommand(t, &commands.StatsCmd{}, svc, nil, false)

	expectCode(t, exitcode.Success, code, stderr)
	expected := "Empty\n  no tasks\n" +
		"Checkout\n" +
		"  tasks:      2\n" +
		"  completed:  1 (50%)\n" +
		"  average:    65\n" +
		"  stage:      downhill\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestStatsCommand_JSONSingle(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	svc.AddTask(f, "one", false, 25)

	cmd := &commands.StatsCmd{}
	cmd.SetFormat("json")
	stdout, stderr, code := runCommand(t, cmd, svc, []string{"a"}, false)
	expectCode(t, exitcode.Success, code, stderr)

	var got map[string]any
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if got["feature"] != "Checkout" || got["stage"] != "uphill" || got["percentage"] != 0.0 || got["averagePosition"] != 25.0 {
		t.Errorf("unexpected stats: %v", got)
	}
}

func TestStatsCommand_YAMLUndefined(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddFeature("Empty")

	cmd := &commands.StatsCmd{}
	cmd.SetFormat("yaml")
	stdout, stderr, code := runCommand(t, cmd, svc, nil, false)
	expectCode(t, exitcode.Success, code, stderr)

	for _, want := range []string{"feature: Empty", "task_count: 0", "percentage: null", "stage: null"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("yaml output %q should contain %q", stdout, want)
		}
	}
}

func TestStatsCommand_BadFormat(t *testing.T) {
	cmd := &commands.StatsCmd{}
	cmd.SetFormat("xml")
	_, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), nil, false)
	expectCode(t, exitcode.UserError, code, stderr)
}

// Tests for chart command
func TestChartCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	f := svc.AddFeature("Checkout")
	svc.AddTask(f, "Design", false, 50)

	stdout, stderr, code := runCommand(t, &commands.ChartCmd{}, svc, []string{"a"}, false)
	expectCode(t, exitcode.Success, code, stderr)
	if !strings.HasPrefix(stdout, "<svg") || !strings.Contains(stdout, ">Design</text>") {
		t.Errorf("unexpected svg: %q", stdout)
	}

	path := filepath.Join(t.TempDir(), "hill.svg")
	cmd := &commands.ChartCmd{}
	cmd.SetOut(path)
	stdout, stderr, code = runCommand(t, cmd, svc, []string{"Checkout"}, false)
	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("<title>Checkout</title>")) {
		t.Errorf("chart file missing title: %s", data)
	}
}

// Tests for assignees command
func TestAssigneesCommand(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, code := runCommand(t, &commands.AssigneesCmd{}, svc, nil, false)
	expectCode(t, exitcode.Success, code, "")
	if stdout != "no assignees found\n" {
		t.Errorf("unexpected output: %q", stdout)
	}

	add := &commands.AssigneesCmd{}
	add.SetAdd("Zen", "https://example.com/zen.png")
	_, stderr, code := runCommand(t, add, svc, nil, true)
	expectCode(t, exitcode.Success, code, stderr)

	add.SetAdd("Zen", "")
	_, stderr, code = runCommand(t, add, svc, nil, true)
	expectCode(t, exitcode.UserError, code, stderr)

	stdout, _, _ = runCommand(t, &commands.AssigneesCmd{}, svc, nil, false)
	if stdout != "Zen  https://example.com/zen.png\n" {
		t.Errorf("unexpected output: %q", stdout)
	}
}

// Tests for import command
func TestImportCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	src := &testutil.FakeSource{
		Lists: []service.SourceList{{ID: "L1", Title: "Groceries"}},
		Tasks: map[string][]service.SourceTask{
			"L1": {
				{ID: "1", Title: "Milk"},
				{ID: "2", Title: "Eggs", Completed: true},
			},
		},
	}
	env := testEnv(t, svc, false)
	env.Source = src

	cmd := &commands.ImportCmd{}
	cmd.SetOptions("groceries", "")
	stdout, stderr, code := runEnv(t, cmd, env, nil)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "imported 2 tasks into Groceries\n" {
		t.Errorf("unexpected output: %q", stdout)
	}
	f, err := svc.ResolveFeature(context.Background(), "Groceries")
	if err != nil {
		t.Fatal(err)
	}
	tasks, _ := svc.ListTasks(context.Background(), f.ID)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Completed || tasks[0].Position != 0 {
		t.Errorf("open task should start at 0: %+v", tasks[0])
	}
	if !tasks[1].Completed || tasks[1].Position != 100 {
		t.Errorf("completed task should sit at 100: %+v", tasks[1])
	}

	// A second import into an explicit, existing feature reuses it.
	cmd.SetOptions("Groceries", "groceries")
	_, stderr, code = runEnv(t, cmd, env, nil)
	expectCode(t, exitcode.Success, code, stderr)
	if names := svc.FeatureNames(); len(names) != 1 {
		t.Errorf("expected one feature, got %v", names)
	}
}

func TestImportCommand_Errors(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.ImportCmd{}
	_, stderr, code := runCommand(t, cmd, svc, nil, false)
	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: --list required\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}

	cmd.SetOptions("Groceries", "")
	_, stderr, code = runCommand(t, cmd, svc, nil, false)
	expectCode(t, exitcode.AuthError, code, stderr)

	env := testEnv(t, svc, false)
	env.Source = &testutil.FakeSource{}
	_, stderr, code = runEnv(t, cmd, env, nil)
	expectCode(t, exitcode.UserError, code, stderr)
	if stderr != "error: not found: list Groceries\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

// Tests for migrate and seed commands, against a real in-memory store.
func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), sqlstore.MemoryPath, sqlstore.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if _, err := store.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return store
}

func storeEnv(t *testing.T, store *sqlstore.Store, quiet bool) *commands.Env {
	env := testEnv(t, nil, quiet)
	env.Service = store
	env.Admin = store
	return env
}

func TestMigrateCommand(t *testing.T) {
	store := openStore(t)

	stdout, stderr, code := runEnv(t, &commands.MigrateCmd{}, storeEnv(t, store, false), nil)
	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "001_init  up to date\n002_indexes  up to date\n" {
		t.Errorf("unexpected output: %q", stdout)
	}

	cmd := &commands.MigrateCmd{}
	cmd.SetDrop(true)
	stdout, stderr, code = runEnv(t, cmd, storeEnv(t, store, false), nil)
	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "001_init  applied\n002_indexes  applied\n" {
		t.Errorf("unexpected output: %q", stdout)
	}
}

func TestMigrateCommand_NoAdmin(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.MigrateCmd{}, testutil.NewFakeService(), nil, false)
	expectCode(t, exitcode.BackendError, code, stderr)
}

func TestSeedCommand(t *testing.T) {
	store := openStore(t)

	cmd := &commands.SeedCmd{}
	cmd.SetSeed(42)
	stdout, stderr, code := runEnv(t, cmd, storeEnv(t, store, false), nil)

	expectCode(t, exitcode.Success, code, stderr)
	if stdout != "seeded 3 features, 12 tasks, 7 assignees\n" {
		t.Errorf("unexpected output: %q", stdout)
	}

	// Seeded features are usable through the other commands.
	stdout, stderr, code = runEnv(t, &commands.TasksCmd{}, storeEnv(t, store, false), []string{"Feature A"})
	expectCode(t, exitcode.Success, code, stderr)
	if strings.Count(stdout, "\n") != 7 {
		t.Errorf("expected header and 4 tasks, got %q", stdout)
	}
}

// Tests for serve command
func TestServeCommand_StopsOnCancel(t *testing.T) {
	cmd := &commands.ServeCmd{}
	cmd.SetAddr("127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out, errOut bytes.Buffer
	code := cmd.Run(ctx, testEnv(t, testutil.NewFakeService(), false), nil, &out, &errOut)

	expectCode(t, exitcode.Success, code, errOut.String())
	if !strings.HasPrefix(out.String(), "listening on 127.0.0.1:") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestServeCommand_BadAddr(t *testing.T) {
	cmd := &commands.ServeCmd{}
	cmd.SetAddr("not-an-addr")
	_, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), nil, false)
	expectCode(t, exitcode.UserError, code, stderr)
}
