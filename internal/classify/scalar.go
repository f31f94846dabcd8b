package classify

import (
	"context"
	"fmt"

	"github.com/jengzang/bim4d-backend-go/internal/models"
	"github.com/jengzang/bim4d-backend-go/internal/schedule"
)

// Scalar walks the task tree, nested tasks first, and classifies each task
// on its own. It only needs the document.
type Scalar struct {
	src schedule.Source
}

// NewScalar creates the traversal strategy
func NewScalar(src schedule.Source) *Scalar {
	return &Scalar{src: src}
}

// Name implements Strategy
func (s *Scalar) Name() string { return "scalar" }

// Classify implements Strategy
func (s *Scalar) Classify(ctx context.Context, req Request) (*models.StateBuckets, error) {
	b := models.NewStateBuckets()
	err := schedule.Walk(ctx, s.src, req.ScheduleID, schedule.PostOrder, func(t, _ *models.Task, _ int) error {
		start, finish, err := schedule.Dates(ctx, s.src, t, req.Source)
		if err != nil {
			return err
		}
		if start == nil || finish == nil {
			return nil
		}
		phase, ok := PhaseAt(*start, *finish, req.Date, req.Window)
		if !ok {
			return nil
		}
		outputs, err := s.src.TaskOutputs(ctx, t.ID)
		if err != nil {
			return err
		}
		inputs, err := s.src.TaskInputs(ctx, t.ID)
		if err != nil {
			return err
		}
		b.Assign(t.ID, phase, outputs, inputs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to classify schedule %d: %w", req.ScheduleID, err)
	}
	return b, nil
}
