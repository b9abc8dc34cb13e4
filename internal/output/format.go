// Package output provides formatters for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hillchart/internal/progress"
	"hillchart/internal/service"
)

const (
	// Separator is the separator line for feature sections.
	Separator = "------------"

	// DateLayout is how due dates are printed.
	DateLayout = "2006-01-02"
)

// Structured output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format: %s (want text, json or yaml)", s)
	}
}

// Encode writes v as indented JSON or YAML.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %s cannot encode values", format)
	}
}

// FormatFeature formats a feature line for the features command.
// Format: "{L}  {NAME} [{STATUS}]  {SUMMARY}\n". letter 0 prints a blank.
func FormatFeature(w io.Writer, letter rune, f service.Feature) {
	l := " "
	if letter != 0 {
		l = string(letter)
	}
	fmt.Fprintf(w, "%s  %s [%s]  %s%s\n", l, normalizeTitle(f.Name), f.Status, Summary(f.Stats), due(f.DueDate))
}

// FormatFeatureHeader formats a feature section header.
func FormatFeatureHeader(w io.Writer, f service.Feature) {
	fmt.Fprintln(w, Separator)
	fmt.Fprintf(w, "%s [%s]\n", normalizeTitle(f.Name), f.Status)
	fmt.Fprintln(w, Separator)
}

// FormatTask formats a task line.
// Format: "{N:>4}  [x] {POS:>5}  {TITLE}\n" followed by assignees and due date.
func FormatTask(w io.Writer, num int, task service.Task) {
	check := " "
	if task.Completed {
		check = "x"
	}
	var names []string
	for _, a := range task.Assignees {
		names = append(names, "@"+a.Username)
	}
	owners := ""
	if len(names) > 0 {
		owners = "  " + strings.Join(names, " ")
	}
	fmt.Fprintf(w, "%4d  [%s] %5s  %s%s%s\n", num, check, Number(task.Position), normalizeTitle(task.Title), owners, due(task.DueDate))
}

// FormatAssignee formats an assignee line.
func FormatAssignee(w io.Writer, a service.Assignee) {
	if a.AvatarURL == "" {
		fmt.Fprintln(w, a.Username)
		return
	}
	fmt.Fprintf(w, "%s  %s\n", a.Username, a.AvatarURL)
}

// FormatStats prints one feature's progress as an indented block.
func FormatStats(w io.Writer, name string, s *progress.Stats) {
	fmt.Fprintln(w, normalizeTitle(name))
	if s == nil {
		fmt.Fprintln(w, "  no tasks")
		return
	}
	fmt.Fprintf(w, "  tasks:      %d\n", s.TaskCount)
	fmt.Fprintf(w, "  completed:  %d (%s%%)\n", s.CompletedCount, Number(s.Percentage))
	fmt.Fprintf(w, "  average:    %s\n", Number(s.AveragePosition))
	fmt.Fprintf(w, "  stage:      %s\n", s.Stage)
}

// Summary is a one-line description of s.
func Summary(s *progress.Stats) string {
	if s == nil {
		return "no tasks"
	}
	return fmt.Sprintf("%d/%d done (%s%%), avg %s, %s",
		s.CompletedCount, s.TaskCount, Number(s.Percentage), Number(s.AveragePosition), s.Stage)
}

// Number prints v rounded to one decimal without trailing zeros.
func Number(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func due(t *time.Time) string {
	if t == nil {
		return ""
	}
	return "  due " + t.UTC().Format(DateLayout)
}

// normalizeTitle normalizes a title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
