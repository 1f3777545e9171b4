package tasks

import "errors"

// Priority selects the stream a task is written to.
type Priority int

const (
	// PriorityHigh is read before any other stream.
	PriorityHigh Priority = 1
	// PriorityNormal is the default for write-path tasks.
	PriorityNormal Priority = 2
	// PriorityLow is used for rebuilds and bulk backfills.
	PriorityLow Priority = 3

	priorityStrNormal = "normal"
)

// String returns the stream suffix for p.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return priorityStrNormal
	}
}

// IsValid reports whether p is one of the defined priorities.
func (p Priority) IsValid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

// ParsePriority converts a config or CLI value to a Priority.
func ParsePriority(v string) (Priority, error) {
	switch v {
	case "high", "1":
		return PriorityHigh, nil
	case priorityStrNormal, "2", "":
		return PriorityNormal, nil
	case "low", "3":
		return PriorityLow, nil
	default:
		return PriorityNormal, errors.New("invalid priority: must be high, normal, or low")
	}
}

// AllPriorities returns every priority, most urgent first.
func AllPriorities() []Priority {
	return []Priority{PriorityHigh, PriorityNormal, PriorityLow}
}
