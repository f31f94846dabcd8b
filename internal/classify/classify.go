// Package classify partitions the products of a schedule into construction
// state buckets for a date.
package classify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jengzang/bim4d-backend-go/internal/models"
)

// ErrUnavailable is returned by a strategy whose preconditions are not met
var ErrUnavailable = errors.New("strategy unavailable")

// Request selects what to classify
type Request struct {
	ScheduleID int64
	Date       time.Time
	Source     models.DateSource
	Window     models.Window
}

// Strategy is one way of producing the buckets. Every implementation must
// assign the same phase to every task and the same products to every bucket.
type Strategy interface {
	Name() string
	Classify(ctx context.Context, req Request) (*models.StateBuckets, error)
}

// Classifier tries the fast strategy first and falls back to the slow one
type Classifier struct {
	fast Strategy
	slow Strategy
	log  *slog.Logger
}

// New returns a classifier. fast may be nil.
func New(fast, slow Strategy, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{fast: fast, slow: slow, log: logger.With("component", "classifier")}
}

// Classify returns the buckets and the name of the strategy that produced them
func (c *Classifier) Classify(ctx context.Context, req Request) (*models.StateBuckets, string, error) {
	if c.fast != nil {
		b, err := c.fast.Classify(ctx, req)
		if err == nil {
			return b, c.fast.Name(), nil
		}
		c.log.Debug("fast path unavailable, falling back", "strategy", c.fast.Name(), "error", err)
	}
	b, err := c.slow.Classify(ctx, req)
	if err != nil {
		return nil, "", err
	}
	return b, c.slow.Name(), nil
}

// PhaseAt is the per-task rule. ok is false when the task starts after the
// window and is left out entirely.
func PhaseAt(start, finish, date time.Time, window models.Window) (phase models.TaskPhase, ok bool) {
	if window.Finish != nil && start.After(*window.Finish) {
		return "", false
	}
	if window.Start != nil && finish.Before(*window.Start) {
		return models.PhaseDone, true
	}
	switch {
	case date.Before(start):
		return models.PhasePending, true
	case !date.After(finish):
		return models.PhaseActive, true
	}
	return models.PhaseDone, true
}
