// Package scheduletest provides an in-memory schedule.Source for tests.
package scheduletest

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jengzang/bim4d-backend-go/internal/models"
)

// Source is a mutable in-memory document. It counts root lookups so tests can
// observe cache hits.
type Source struct {
	mu       sync.Mutex
	tasks    map[int64]*models.Task
	roots    map[int64][]int64
	children map[int64][]int64
	outputs  map[int64][]int64
	inputs   map[int64][]int64
	nextID   int64

	RootCalls int
	Revision  int
}

// New returns an empty document
func New() *Source {
	return &Source{
		tasks:    make(map[int64]*models.Task),
		roots:    make(map[int64][]int64),
		children: make(map[int64][]int64),
		outputs:  make(map[int64][]int64),
		inputs:   make(map[int64][]int64),
		nextID:   1,
	}
}

// Date is a shorthand for a UTC midnight
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddTask inserts a task under parent (0 for a root) with SCHEDULE dates.
// Nil dates leave the source pair empty.
func (s *Source) AddTask(scheduleID, parent int64, predefinedType string, start, finish *time.Time) *models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	t := &models.Task{ID: id, ScheduleID: scheduleID, Name: fmt.Sprintf("Task %d", id), PredefinedType: predefinedType}
	if start != nil || finish != nil {
		t.Times = []models.TaskTime{{Source: models.DateSourceSchedule, Start: start, Finish: finish}}
	}
	if parent == 0 {
		s.roots[scheduleID] = append(s.roots[scheduleID], id)
	} else {
		p := parent
		t.ParentID = &p
		s.children[parent] = append(s.children[parent], id)
	}
	s.tasks[id] = t
	s.Revision++
	return t
}

// Nest adds an extra parent edge
func (s *Source) Nest(parent, child int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[parent] = append(s.children[parent], child)
	s.Revision++
}

// AddOutputs links products the task builds
func (s *Source) AddOutputs(taskID int64, products ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[taskID] = append(s.outputs[taskID], products...)
	s.Revision++
}

// AddInputs links products the task removes
func (s *Source) AddInputs(taskID int64, products ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs[taskID] = append(s.inputs[taskID], products...)
	s.Revision++
}

// RootTasks implements schedule.Source
func (s *Source) RootTasks(_ context.Context, scheduleID int64) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RootCalls++
	return s.lookup(s.roots[scheduleID]), nil
}

// NestedTasks implements schedule.Source
func (s *Source) NestedTasks(_ context.Context, taskID int64) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(s.children[taskID]), nil
}

// TaskOutputs implements schedule.Source
func (s *Source) TaskOutputs(_ context.Context, taskID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.outputs[taskID]...), nil
}

// TaskInputs implements schedule.Source
func (s *Source) TaskInputs(_ context.Context, taskID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.inputs[taskID]...), nil
}

// Fingerprint changes whenever the document is edited
func (s *Source) Fingerprint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("rev-%d", s.Revision), nil
}

func (s *Source) lookup(ids []int64) []*models.Task {
	out := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.tasks[id])
	}
	return out
}

var randomTypes = []string{
	models.TypeConstruction, models.TypeInstallation, models.TypeDemolition,
	models.TypeRemoval, models.TypeOperation, models.TypeNotDefined,
}

// Random builds a nested schedule of roughly n tasks spread over a year,
// with some summary tasks lacking dates and some products shared by tasks.
func Random(seed int64, scheduleID int64, n int) *Source {
	r := rand.New(rand.NewSource(seed))
	s := New()
	base := Date(2024, time.January, 1)
	var ids []int64
	for i := 0; i < n; i++ {
		parent := int64(0)
		if len(ids) > 0 && r.Intn(3) > 0 {
			parent = ids[r.Intn(len(ids))]
		}
		var st, fn *time.Time
		if r.Intn(6) > 0 {
			a := base.Add(time.Duration(r.Intn(365*24)) * time.Hour)
			b := a.Add(time.Duration(r.Intn(60*24)) * time.Hour)
			if r.Intn(15) == 0 {
				a, b = b, a // degenerate: finish before start
			}
			st, fn = &a, &b
		}
		typ := randomTypes[r.Intn(len(randomTypes))]
		t := s.AddTask(scheduleID, parent, typ, st, fn)
		ids = append(ids, t.ID)
		for k := r.Intn(3); k > 0; k-- {
			p := int64(1000 + r.Intn(n*2))
			if models.IsDemolitionType(typ) {
				s.AddInputs(t.ID, p)
			} else {
				s.AddOutputs(t.ID, p)
			}
		}
	}
	return s
}
