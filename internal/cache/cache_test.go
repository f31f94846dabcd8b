package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/bim4d-backend-go/internal/models"
	"github.com/jengzang/bim4d-backend-go/internal/schedule/scheduletest"
)

func ptr(t time.Time) *time.Time { return &t }

func sampleSource() *scheduletest.Source {
	src := scheduletest.New()
	p := src.AddTask(1, 0, models.TypeConstruction, nil, nil)
	a := src.AddTask(1, p.ID, models.TypeConstruction, ptr(scheduletest.Date(2024, 1, 1)), ptr(scheduletest.Date(2024, 1, 10)))
	b := src.AddTask(1, p.ID, models.TypeDemolition, ptr(scheduletest.Date(2024, 1, 5)), ptr(scheduletest.Date(2024, 1, 20)))
	src.AddOutputs(a.ID, 100, 101)
	src.AddInputs(b.ID, 200)
	src.AddOutputs(b.ID, 100)
	return src
}

func TestCache_SecondReadReturnsSameData(t *testing.T) {
	src := sampleSource()
	c := New(src, src, Options{})
	ctx := context.Background()

	first, ok := c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	require.True(t, ok)
	calls := src.RootCalls

	second, ok := c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	require.True(t, ok)
	assert.Same(t, first, second)
	assert.Equal(t, calls, src.RootCalls)

	// summary task derives its range from the two children
	assert.Equal(t, 3, first.TaskCount)
	assert.Equal(t, scheduletest.Date(2024, 1, 1), *first.Start)
	assert.Equal(t, scheduletest.Date(2024, 1, 20), *first.Finish)
}

func TestCache_FingerprintChangeForcesRecompute(t *testing.T) {
	src := sampleSource()
	c := New(src, src, Options{})
	ctx := context.Background()

	first, ok := c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	require.True(t, ok)

	src.AddTask(1, 0, models.TypeConstruction, ptr(scheduletest.Date(2023, 12, 1)), ptr(scheduletest.Date(2023, 12, 2)))

	second, ok := c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.Equal(t, 4, second.TaskCount)
	assert.Equal(t, scheduletest.Date(2023, 12, 1), *second.Start)
}

func TestCache_EntriesExpire(t *testing.T) {
	src := sampleSource()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New(src, src, Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	first, _ := c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	now = now.Add(299 * time.Second)
	again, _ := c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	assert.Same(t, first, again)

	now = now.Add(2 * time.Second)
	fresh, _ := c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	assert.NotSame(t, first, fresh)
}

// reentrantSource calls back into the cache from inside a computation
type reentrantSource struct {
	*scheduletest.Source
	cache    *SequenceCache
	nestedOK *bool
	fail     bool
}

func (r *reentrantSource) RootTasks(ctx context.Context, scheduleID int64) ([]*models.Task, error) {
	if r.fail {
		return nil, errors.New("document closed")
	}
	if r.nestedOK != nil && r.cache != nil {
		_, ok := r.cache.ScheduleDates(ctx, scheduleID, models.DateSourceSchedule)
		*r.nestedOK = ok
		r.nestedOK = nil
	}
	return r.Source.RootTasks(ctx, scheduleID)
}

func TestCache_ReentrantRequestIsRejected(t *testing.T) {
	nested := true
	src := &reentrantSource{Source: sampleSource(), nestedOK: &nested}
	c := New(src, nil, Options{})
	src.cache = c

	dates, ok := c.ScheduleDates(context.Background(), 1, models.DateSourceSchedule)
	require.True(t, ok)
	assert.NotNil(t, dates)
	assert.False(t, nested)
}

func TestCache_FailedComputationReleasesKey(t *testing.T) {
	src := &reentrantSource{Source: sampleSource(), fail: true}
	c := New(src, nil, Options{})
	ctx := context.Background()

	_, ok := c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	assert.False(t, ok)

	src.fail = false
	_, ok = c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	assert.True(t, ok)
}

func TestCache_EvictsOldestQuarter(t *testing.T) {
	src := sampleSource()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := New(src, src, Options{MaxEntries: 8, Now: func() time.Time { return now }})
	ctx := context.Background()

	for id := int64(1); id <= 9; id++ {
		now = now.Add(time.Second)
		_, ok := c.ScheduleDates(ctx, id, models.DateSourceSchedule)
		require.True(t, ok)
	}
	// 9 entries exceed the limit of 8; int(9*0.25) = 2 oldest are dropped
	assert.Equal(t, 7, c.Len())
	assert.Equal(t, 2, c.Stats().Evictions)

	calls := src.RootCalls
	_, _ = c.ScheduleDates(ctx, 9, models.DateSourceSchedule)
	assert.Equal(t, calls, src.RootCalls)
	_, _ = c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	assert.Greater(t, src.RootCalls, calls)
}

func TestCache_EvictionWithFrozenClockKeepsNewestKey(t *testing.T) {
	src := sampleSource()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := New(src, src, Options{MaxEntries: 4, Now: func() time.Time { return now }})
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		_, ok := c.ScheduleDates(ctx, id, models.DateSourceSchedule)
		require.True(t, ok)
	}
	// all five share a timestamp; insertion order decides, id 1 goes
	assert.Equal(t, 4, c.Len())

	calls := src.RootCalls
	for id := int64(2); id <= 5; id++ {
		_, _ = c.ScheduleDates(ctx, id, models.DateSourceSchedule)
	}
	assert.Equal(t, calls, src.RootCalls)
	_, _ = c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	assert.Greater(t, src.RootCalls, calls)
}

func TestCache_TaskProductsMergesRelations(t *testing.T) {
	src := sampleSource()
	c := New(src, src, Options{})

	products, ok := c.TaskProducts(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, []int64{100, 101}, products[2])
	assert.Equal(t, []int64{100, 200}, products[3])
	assert.Empty(t, products[1])
}

func TestCache_Hierarchy(t *testing.T) {
	src := sampleSource()
	c := New(src, src, Options{})

	h, ok := c.Hierarchy(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, []int64{1}, h.Roots)
	assert.Equal(t, []int64{2, 3}, h.Children[1])
	assert.Equal(t, int64(1), h.Parents[3])
	assert.Equal(t, 1, h.Levels[2])
}

func TestCache_ClearDropsEverything(t *testing.T) {
	src := sampleSource()
	c := New(src, src, Options{})
	ctx := context.Background()

	first, _ := c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	require.Equal(t, 1, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Stats().Operations)

	second, _ := c.ScheduleDates(ctx, 1, models.DateSourceSchedule)
	assert.NotSame(t, first, second)
}

func TestCache_DateInterpolation(t *testing.T) {
	src := sampleSource()
	c := New(src, src, Options{})

	dates, ok := c.DateInterpolation(context.Background(), 1, []float64{0, 0.5, 1}, models.DateSourceSchedule)
	require.True(t, ok)
	assert.Equal(t, scheduletest.Date(2024, 1, 1), dates[0])
	assert.Equal(t, scheduletest.Date(2024, 1, 10).Add(12*time.Hour), dates[1])
	assert.Equal(t, scheduletest.Date(2024, 1, 20), dates[2])

	_, ok = c.DateInterpolation(context.Background(), 42, []float64{0.5}, models.DateSourceSchedule)
	assert.False(t, ok)
}

func TestCache_FrameStates(t *testing.T) {
	src := sampleSource()
	c := New(src, src, Options{})
	start, end := scheduletest.Date(2024, 1, 1), scheduletest.Date(2024, 1, 21)

	frames, ok := c.FrameStates(context.Background(), 1, 1, 21, start, end, models.DateSourceSchedule)
	require.True(t, ok)
	require.Len(t, frames, 21)
	assert.Equal(t, start, frames[1].Date)
	assert.Equal(t, end, frames[21].Date)

	// day 7: A building, B demolishing and also building product 100
	day7 := frames[7].Buckets
	assert.True(t, day7.Bucket(models.StateInConstruction).Has(101))
	assert.True(t, day7.Bucket(models.StateInDemolition).Has(200))
	// day 21: everything finished
	last := frames[21].Buckets
	assert.True(t, last.Bucket(models.StateCompleted).Has(100))
	assert.True(t, last.Bucket(models.StateDemolished).Has(200))

	assert.Contains(t, c.Stats().Operations, "vectorized_frame_processing")
}
