package models

import "time"

// Document is the import payload: products plus schedule trees that
// reference products by global id.
type Document struct {
	Products  []DocumentProduct  `json:"products"`
	Schedules []DocumentSchedule `json:"schedules"`
}

// DocumentProduct is a product in an import payload
type DocumentProduct struct {
	GlobalID string    `json:"global_id"`
	Name     string    `json:"name"`
	Color    []float64 `json:"color,omitempty"`
}

// DocumentSchedule is a work schedule in an import payload
type DocumentSchedule struct {
	Name  string         `json:"name"`
	Tasks []DocumentTask `json:"tasks"`
}

// DocumentTask is a task node; Tasks are its nested children
type DocumentTask struct {
	Identification string                  `json:"identification,omitempty"`
	Name           string                  `json:"name"`
	PredefinedType string                  `json:"predefined_type,omitempty"`
	Times          map[string]DocumentTime `json:"times,omitempty"`
	Outputs        []string                `json:"outputs,omitempty"`
	Inputs         []string                `json:"inputs,omitempty"`
	Tasks          []DocumentTask          `json:"tasks,omitempty"`
}

// DocumentTime is one start/finish pair
type DocumentTime struct {
	Start  *time.Time `json:"start,omitempty"`
	Finish *time.Time `json:"finish,omitempty"`
}

// ImportResult counts the rows written by an import
type ImportResult struct {
	Schedules []int64 `json:"schedule_ids"`
	Tasks     int     `json:"tasks"`
	Products  int     `json:"products"`
	Links     int     `json:"links"`
}
