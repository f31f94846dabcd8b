package classify

import (
	"context"

	"github.com/jengzang/bim4d-backend-go/internal/cache"
	"github.com/jengzang/bim4d-backend-go/internal/models"
)

// Vectorized classifies all cached tasks in one array pass
type Vectorized struct {
	cache *cache.SequenceCache
}

// NewVectorized creates the bulk strategy over c
func NewVectorized(c *cache.SequenceCache) *Vectorized {
	return &Vectorized{cache: c}
}

// Name implements Strategy
func (v *Vectorized) Name() string { return "vectorized" }

// Classify implements Strategy
func (v *Vectorized) Classify(ctx context.Context, req Request) (*models.StateBuckets, error) {
	b, ok := v.cache.TaskStates(ctx, req.ScheduleID, req.Date, req.Source, req.Window)
	if !ok {
		return nil, ErrUnavailable
	}
	return b, nil
}
