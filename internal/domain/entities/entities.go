package entities

import (
	"strings"
	"time"
)

// Enums and types
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether p is one of the known priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Category is an open set; the constants are the ones offered by default.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryOther    Category = "other"
)

// FilterMode selects the status filter applied by a task query.
type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterCompleted FilterMode = "completed"
	FilterPending   FilterMode = "pending"
	FilterHigh      FilterMode = "high"
)

// ParseFilterMode maps unknown or empty modes to FilterAll.
func ParseFilterMode(s string) FilterMode {
	switch mode := FilterMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case FilterCompleted, FilterPending, FilterHigh:
		return mode
	}
	return FilterAll
}

// AllCategories is the category filter value that disables category filtering.
const AllCategories = "all"

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"

	DefaultTheme = ThemeDark
)

// ParseTheme returns the theme named by s and whether s was a known theme.
func ParseTheme(s string) (Theme, bool) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeDark, ThemeLight:
		return t, true
	}
	return DefaultTheme, false
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Task represents a single to-do item
type Task struct {
	ID          int64      `json:"id" validate:"required,gt=0"`
	Text        string     `json:"text" validate:"required"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category    Category   `json:"category"`
	DueDate     *Date      `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	return c
}

// Toggle flips the completion state, maintaining CompletedAt.
func (t *Task) Toggle(now time.Time) {
	t.Completed = !t.Completed
	if t.Completed {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}

// IsOverdue reports whether a pending task's due date lies before today.
func (t *Task) IsOverdue(today Date) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(today)
}

// Matches reports whether the lowercase query is contained in the text or the category.
func (t *Task) Matches(query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Text), query) ||
		strings.Contains(strings.ToLower(string(t.Category)), query)
}

// Stats summarises a task collection
type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	CompletionRate int `json:"completionRate"`
	Overdue        int `json:"overdue"`
}
