package animation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/bim4d-backend-go/internal/animation"
	"github.com/jengzang/bim4d-backend-go/internal/frames"
	"github.com/jengzang/bim4d-backend-go/internal/models"
	"github.com/jengzang/bim4d-backend-go/internal/profile"
	"github.com/jengzang/bim4d-backend-go/internal/scene"
	"github.com/jengzang/bim4d-backend-go/internal/schedule/scheduletest"
	"github.com/jengzang/bim4d-backend-go/internal/timeline"
)

var d0 = scheduletest.Date(2024, 1, 1)

func ptr(t time.Time) *time.Time { return &t }

type fixture struct {
	ctx      context.Context
	store    *profile.Store
	recorder *scene.Recorder
	applier  *animation.Applier
	plan     *timeline.Plan
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()
	src := scheduletest.New()
	build := src.AddTask(1, 0, models.TypeConstruction, ptr(d0), ptr(d0.AddDate(0, 0, 10)))
	demo := src.AddTask(1, 0, models.TypeDemolition, ptr(d0.AddDate(0, 0, 2)), ptr(d0.AddDate(0, 0, 4)))
	src.AddOutputs(build.ID, 1)
	src.AddInputs(demo.ID, 2)

	store := profile.NewStore(profile.NewMemoryKV(), nil)
	_, err := store.EnsureDefaultGroup(ctx)
	require.NoError(t, err)
	cat, err := store.Catalog(ctx)
	require.NoError(t, err)

	settings := frames.Settings{Start: d0, Finish: d0.AddDate(0, 0, 10), Duration: 240 * time.Hour, StartFrame: 1, TotalFrames: 100, FPS: 24}
	plan, err := timeline.NewBuilder(src, nil).Build(ctx, timeline.Request{ScheduleID: 1, Settings: settings, Source: models.DateSourceSchedule, Catalog: cat})
	require.NoError(t, err)

	rec := scene.NewRecorder()
	return &fixture{ctx: ctx, store: store, recorder: rec, applier: animation.NewApplier(rec, store, nil), plan: plan}
}

func TestBake_KeysEverySegment(t *testing.T) {
	f := newFixture(t)
	report, err := f.applier.Bake(f.ctx, f.plan)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Products)

	built, ok := f.recorder.Object(1)
	require.True(t, ok)
	// only the active segment [1,100] is non-empty
	require.Len(t, built.Keyframes, 4)
	assert.Equal(t, 1, built.Keyframes[0].Frame)
	assert.Equal(t, 100, built.Keyframes[len(built.Keyframes)-1].Frame)
	assert.True(t, built.Visible)
	assert.Equal(t, models.RGBA{0, 1, 0, 1}, built.Color)

	demo, ok := f.recorder.Object(2)
	require.True(t, ok)
	var last animation.Keyframe
	for _, kf := range demo.Keyframes {
		if kf.Property == animation.PropertyVisible {
			last = kf
		}
	}
	assert.Equal(t, 100, last.Frame)
	assert.False(t, last.Visible)
	assert.True(t, demo.Visible, "demolished object is visible at the first frame")
}

func TestBake_ReplacesPreviousAnimation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.recorder.InsertKeyframe(1, animation.Keyframe{Frame: 500, Property: animation.PropertyVisible}))
	_, err := f.applier.Bake(f.ctx, f.plan)
	require.NoError(t, err)
	o, _ := f.recorder.Object(1)
	for _, kf := range o.Keyframes {
		assert.NotEqual(t, 500, kf.Frame)
	}
}

func TestKeyframes_Deterministic(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, animation.Keyframes(f.plan), animation.Keyframes(f.plan))
}

// countingScene counts writes on top of a recorder
type countingScene struct {
	*scene.Recorder
	writes int
}

func (c *countingScene) SetColor(id int64, col models.RGBA) error {
	c.writes++
	return c.Recorder.SetColor(id, col)
}

func TestLive_FollowsPlayheadAndGroupChanges(t *testing.T) {
	f := newFixture(t)
	cs := &countingScene{Recorder: scene.NewRecorder()}
	applier := animation.NewApplier(cs, f.store, nil)
	playhead := scene.NewPlayhead(1)

	live := applier.Live(f.plan, nil)
	require.NoError(t, live.Start(f.ctx, playhead))
	assert.NotEmpty(t, live.ID)
	assert.Equal(t, 1, playhead.Subscribers())

	playhead.SetFrame(30)
	demo, _ := cs.Object(2)
	assert.True(t, demo.Visible)
	assert.Equal(t, models.RGBA{1, 0, 0, 1}, demo.Color)

	writes := cs.writes
	playhead.SetFrame(30)
	assert.Equal(t, writes, cs.writes, "repeated frame is ignored")

	playhead.SetFrame(60)
	demo, _ = cs.Object(2)
	assert.False(t, demo.Visible)

	custom := profile.New(models.TypeConstruction)
	custom.InProgressColor = models.RGBA{0, 0, 1, 1}
	require.NoError(t, f.store.SaveGroup(f.ctx, "Blue", []profile.Profile{custom}))
	require.NoError(t, f.store.SetStack(f.ctx, profile.GroupStack{{Group: "Blue", Enabled: true}}))
	playhead.SetFrame(61)
	built, _ := cs.Object(1)
	assert.Equal(t, models.RGBA{0, 0, 1, 1}, built.Color)

	live.Stop()
	assert.False(t, live.Running())
	assert.Equal(t, 0, playhead.Subscribers())
	writes = cs.writes
	playhead.SetFrame(80)
	assert.Equal(t, writes, cs.writes)
}

func TestApplySnapshot(t *testing.T) {
	f := newFixture(t)
	err := f.applier.ApplySnapshot(f.ctx, map[int64]timeline.ProductLook{
		5: {ProductID: 5, Visible: false, Color: models.RGBA{1, 0, 0, 1}},
	})
	require.NoError(t, err)
	o, ok := f.recorder.Object(5)
	require.True(t, ok)
	assert.False(t, o.Visible)
	assert.Equal(t, models.RGBA{1, 0, 0, 1}, o.Color)
}
