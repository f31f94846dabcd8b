package models

import (
	"fmt"
	"strings"
	"time"
)

// WorkSchedule is a top-level schedule in the open document
type WorkSchedule struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	TaskCount int       `json:"task_count" db:"task_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Task is a schedule node. Nested tasks reference their parent.
type Task struct {
	ID             int64      `json:"id" db:"id"`
	ScheduleID     int64      `json:"schedule_id" db:"schedule_id"`
	ParentID       *int64     `json:"parent_id,omitempty" db:"parent_id"`
	Identification string     `json:"identification,omitempty" db:"identification"`
	Name           string     `json:"name" db:"name"`
	PredefinedType string     `json:"predefined_type" db:"predefined_type"` // CONSTRUCTION, DEMOLITION, ...
	Times          []TaskTime `json:"times,omitempty"`
}

// TaskTime holds the start/finish pair of one date source
type TaskTime struct {
	Source DateSource `json:"source" db:"date_source"`
	Start  *time.Time `json:"start,omitempty" db:"start_ns"`
	Finish *time.Time `json:"finish,omitempty" db:"finish_ns"`
}

// Time returns the task's own dates for the given source
func (t *Task) Time(src DateSource) (TaskTime, bool) {
	for _, tt := range t.Times {
		if tt.Source == src {
			return tt, true
		}
	}
	return TaskTime{}, false
}

// Type returns the predefined type, NOTDEFINED when unset
func (t *Task) Type() string {
	if t.PredefinedType == "" {
		return TypeNotDefined
	}
	return t.PredefinedType
}

// DateSource selects which pair of task dates drives classification
type DateSource string

// DateSource constants
const (
	DateSourceSchedule DateSource = "SCHEDULE"
	DateSourceActual   DateSource = "ACTUAL"
	DateSourceEarly    DateSource = "EARLY"
	DateSourceLate     DateSource = "LATE"
)

// ParseDateSource accepts any casing; empty means SCHEDULE
func ParseDateSource(s string) (DateSource, error) {
	if s == "" {
		return DateSourceSchedule, nil
	}
	ds := DateSource(strings.ToUpper(strings.TrimSpace(s)))
	switch ds {
	case DateSourceSchedule, DateSourceActual, DateSourceEarly, DateSourceLate:
		return ds, nil
	}
	return "", fmt.Errorf("unknown date source %q", s)
}

// StartAttribute returns the attribute name holding the start date, e.g. ScheduleStart
func (d DateSource) StartAttribute() string {
	return d.title() + "Start"
}

// FinishAttribute returns the attribute name holding the finish date
func (d DateSource) FinishAttribute() string {
	return d.title() + "Finish"
}

func (d DateSource) title() string {
	s := strings.ToLower(string(d))
	if s == "" {
		return "Schedule"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Predefined task types
const (
	TypeConstruction = "CONSTRUCTION"
	TypeInstallation = "INSTALLATION"
	TypeDemolition   = "DEMOLITION"
	TypeRemoval      = "REMOVAL"
	TypeDisposal     = "DISPOSAL"
	TypeDismantle    = "DISMANTLE"
	TypeOperation    = "OPERATION"
	TypeMaintenance  = "MAINTENANCE"
	TypeAttendance   = "ATTENDANCE"
	TypeRenovation   = "RENOVATION"
	TypeLogistic     = "LOGISTIC"
	TypeMove         = "MOVE"
	TypeNotDefined   = "NOTDEFINED"
	TypeUserDefined  = "USERDEFINED"
)

// PredefinedTypes lists every known task type in palette order
var PredefinedTypes = []string{
	TypeConstruction, TypeInstallation,
	TypeDemolition, TypeRemoval, TypeDisposal, TypeDismantle,
	TypeOperation, TypeMaintenance, TypeAttendance,
	TypeRenovation, TypeLogistic, TypeMove,
	TypeNotDefined, TypeUserDefined,
}

// IsDemolitionType reports whether tasks of this type take objects away
func IsDemolitionType(predefinedType string) bool {
	switch strings.ToUpper(predefinedType) {
	case TypeDemolition, TypeRemoval, TypeDisposal, TypeDismantle:
		return true
	}
	return false
}

// Relationship of a product to a task
type Relationship string

// Relationship constants
const (
	RelationshipOutput Relationship = "output" // the task builds it
	RelationshipInput  Relationship = "input"  // the task consumes or removes it
)

// Window is an optional visualization window. Nil bounds are open.
type Window struct {
	Start  *time.Time `json:"start,omitempty"`
	Finish *time.Time `json:"finish,omitempty"`
}

// Bounded reports whether both bounds are set
func (w Window) Bounded() bool {
	return w.Start != nil && w.Finish != nil
}
