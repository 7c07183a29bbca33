// Package models defines server-side data models persisted in the database
// and exchanged over the HTTP API.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dominikcirko/kanban-app/internal/common"
)

type Status string

const (
	StatusToDo       Status = "TO_DO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus accepts the exact wire names.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", common.ErrorValidation, s)
	}
	return st, nil
}

// Priority is persisted as its ordinal (LOW=0, MED=1, HIGH=2) and
// serialized by name. The zero value means "not set".
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMed
	PriorityHigh
)

var priorityNames = map[Priority]string{
	PriorityLow:  "LOW",
	PriorityMed:  "MED",
	PriorityHigh: "HIGH",
}

func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return ""
}

// Ordinal is the stored column value.
func (p Priority) Ordinal() int {
	return int(p) - 1
}

func PriorityFromOrdinal(n int) (Priority, error) {
	p := Priority(n + 1)
	if !p.Valid() {
		return 0, fmt.Errorf("unknown priority ordinal %d", n)
	}
	return p, nil
}

func ParsePriority(s string) (Priority, error) {
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown priority %q", common.ErrorValidation, s)
}

func (p Priority) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Task is a single card on the board. Version is bumped by the store on every
// successful write and must match on conditional writes.
type Task struct {
	ID          int64    `json:"id"`
	Version     int64    `json:"version"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
}

// Validate checks the user-editable fields.
func (t *Task) Validate() error {
	var problems []string

	// lengths only guard the column widths; a one-letter title is fine
	if strings.TrimSpace(t.Title) == "" {
		problems = append(problems, "Title cannot be empty")
	} else if utf8.RuneCountInString(t.Title) > 100 {
		problems = append(problems, "Title cannot exceed 100 characters")
	}

	if strings.TrimSpace(t.Description) == "" {
		problems = append(problems, "Description cannot be empty")
	} else if utf8.RuneCountInString(t.Description) > 500 {
		problems = append(problems, "Description cannot exceed 500 characters")
	}

	if t.Status == "" {
		problems = append(problems, "Status is required")
	} else if !t.Status.Valid() {
		problems = append(problems, fmt.Sprintf("Unknown status %q", t.Status))
	}

	if t.Priority == 0 {
		problems = append(problems, "Priority is required")
	} else if !t.Priority.Valid() {
		problems = append(problems, "Unknown priority")
	}

	if len(problems) > 0 {
		return &common.ValidationError{Problems: problems}
	}
	return nil
}
