package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/bim4d-backend-go/internal/database"
	"github.com/jengzang/bim4d-backend-go/internal/frames"
	"github.com/jengzang/bim4d-backend-go/internal/models"
	"github.com/jengzang/bim4d-backend-go/internal/profile"
	"github.com/jengzang/bim4d-backend-go/internal/repository"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(d int) time.Time { return epoch.AddDate(0, 0, d) }

const sampleDoc = `{
  "products": [
    {"global_id": "wall", "name": "Wall", "color": [0.5, 0.5, 0.5]},
    {"global_id": "slab", "name": "Slab"},
    {"global_id": "old", "name": "Old wall"}
  ],
  "schedules": [{
    "name": "Main",
    "tasks": [{
      "name": "Phase 1",
      "predefined_type": "CONSTRUCTION",
      "tasks": [
        {"name": "Build wall", "predefined_type": "CONSTRUCTION",
         "times": {"SCHEDULE": {"start": "2024-01-01T00:00:00Z", "finish": "2024-01-11T00:00:00Z"}},
         "outputs": ["wall", "slab"]},
        {"name": "Remove old", "predefined_type": "DEMOLITION",
         "times": {"SCHEDULE": {"start": "2024-01-06T00:00:00Z", "finish": "2024-01-21T00:00:00Z"}},
         "inputs": ["old"]}
      ]
    }]
  }, {
    "name": "Undated",
    "tasks": [{"name": "Someday"}]
  }]
}`

// one simulated day per second at 24 fps
var daySpeed = frames.SpeedRequest{Type: "MULTIPLIER_SPEED", Multiplier: 86400}

func newTestService(t *testing.T) (*SequenceService, *models.ImportResult) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sequence.db")
	db, err := database.Open(database.Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db).RunMigrations())

	svc := NewSequenceService(
		repository.NewScheduleRepository(db, path),
		repository.NewKVRepository(db),
		Options{FPS: 24, StartFrame: 1},
		nil,
	)
	res, err := svc.Import(context.Background(), []byte(sampleDoc))
	require.NoError(t, err)
	require.Len(t, res.Schedules, 2)
	return svc, res
}

func TestImport_RejectsInvalidDocument(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Import(context.Background(), []byte(`{"schedules": "nope"}`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestClassify_BucketsFollowTheDate(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()
	main := res.Schedules[0]

	during, err := svc.Classify(ctx, main, ClassifyRequest{Date: day(7)})
	require.NoError(t, err)
	assert.Equal(t, "vectorized", during.Strategy)
	assert.Equal(t, []int64{1, 2}, during.Buckets[models.StateInConstruction])
	assert.Equal(t, []int64{3}, during.Buckets[models.StateInDemolition])

	after, err := svc.Classify(ctx, main, ClassifyRequest{Date: day(25)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, after.Buckets[models.StateCompleted])
	assert.Equal(t, []int64{3}, after.Buckets[models.StateDemolished])
}

func TestClassify_Errors(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()

	_, err := svc.Classify(ctx, 999, ClassifyRequest{Date: day(1)})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Classify(ctx, res.Schedules[0], ClassifyRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Classify(ctx, res.Schedules[0], ClassifyRequest{Date: day(1), Source: "someday"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSnapshot_DemolitionHidesAtEnd(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()

	snap, err := svc.Snapshot(ctx, res.Schedules[0], SnapshotRequest{
		ClassifyRequest: ClassifyRequest{Date: day(25)},
		Apply:           true,
	})
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultGroup, snap.Group)
	require.Contains(t, snap.Looks, int64(3))
	assert.False(t, snap.Looks[3].Visible)
	assert.True(t, snap.Looks[1].Visible)

	obj, ok := svc.SceneObject(3)
	require.True(t, ok)
	assert.False(t, obj.Visible)
}

func TestAnimationSettings_GuessesRange(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()

	settings, err := svc.AnimationSettings(ctx, res.Schedules[0], AnimationRequest{Speed: daySpeed})
	require.NoError(t, err)
	assert.True(t, settings.Start.Equal(day(0)))
	assert.True(t, settings.Finish.Equal(day(20)))
	assert.Equal(t, 480, settings.TotalFrames)
	assert.Equal(t, 480, settings.EndFrame())

	_, err = svc.AnimationSettings(ctx, res.Schedules[1], AnimationRequest{Speed: daySpeed})
	assert.ErrorIs(t, err, ErrNoDateRange)

	_, err = svc.AnimationSettings(ctx, res.Schedules[0], AnimationRequest{Speed: frames.SpeedRequest{Type: "MULTIPLIER_SPEED"}})
	assert.ErrorIs(t, err, frames.ErrInvalidSpeed)
}

func TestBake_WritesKeyframes(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()

	out, err := svc.Bake(ctx, res.Schedules[0], AnimationRequest{Speed: daySpeed})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Products)
	assert.Greater(t, out.Keyframes, 0)

	for _, id := range []int64{1, 2, 3} {
		obj, ok := svc.SceneObject(id)
		require.True(t, ok, "product %d", id)
		assert.NotEmpty(t, obj.Keyframes)
	}
}

func TestLive_FollowsPlayhead(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()

	status, err := svc.StartLive(ctx, res.Schedules[0], AnimationRequest{Speed: daySpeed})
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, 3, status.Products)

	// day ~4: demolition not started, the old wall is still shown
	st := svc.SetFrame(100)
	assert.Equal(t, 100, st.Frame)
	obj, ok := svc.SceneObject(3)
	require.True(t, ok)
	assert.True(t, obj.Visible)
	assert.Empty(t, obj.Keyframes)

	svc.StopLive()
	assert.False(t, svc.LiveStatus().Running)
}

func TestLive_ConcurrentStartsKeepOneSession(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()
	_, err := svc.StartLive(ctx, res.Schedules[0], AnimationRequest{Speed: daySpeed})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.StartLive(ctx, res.Schedules[0], AnimationRequest{Speed: daySpeed}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	assert.Equal(t, 1, svc.playhead.Subscribers())
	assert.True(t, svc.LiveStatus().Running)

	svc.StopLive()
	assert.Equal(t, 0, svc.playhead.Subscribers())
}

func TestProfiles_GroupsAndResolution(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	groups, err := svc.ProfileGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, profile.DefaultGroup, groups[0].Name)

	custom := profile.New(models.TypeConstruction)
	custom.InProgressColor = models.RGBA{0, 0, 1, 1}
	require.NoError(t, svc.SaveProfileGroup(ctx, ProfileGroup{Name: "Blue", Profiles: []profile.Profile{custom}}))
	require.NoError(t, svc.SetGroupStack(ctx, profile.GroupStack{{Group: "Blue", Enabled: true}}))

	_, active, err := svc.GroupStack(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Blue", active)

	r, err := svc.ResolveProfile(ctx, 2, models.TypeConstruction, "")
	require.NoError(t, err)
	assert.Equal(t, "Blue", r.Group)
	assert.Equal(t, models.RGBA{0, 0, 1, 1}, r.Profile.InProgressColor)

	require.NoError(t, svc.SetAssignment(ctx, 2, profile.Assignment{Groups: []profile.GroupChoice{
		{GroupName: "Blue", Enabled: true, SelectedValue: "CONSTRUCTION"},
	}}))
	assignments, err := svc.Assignments(ctx)
	require.NoError(t, err)
	assert.Contains(t, assignments, int64(2))

	assert.ErrorIs(t, svc.DeleteProfileGroup(ctx, profile.DefaultGroup), profile.ErrProtectedGroup)
	require.NoError(t, svc.DeleteProfileGroup(ctx, "Blue"))
}

func TestCache_StatsAndClear(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()

	_, err := svc.ScheduleDates(ctx, res.Schedules[0], "")
	require.NoError(t, err)
	h, err := svc.Hierarchy(ctx, res.Schedules[0])
	require.NoError(t, err)
	assert.Len(t, h.Roots, 1)

	report := svc.CacheStats()
	assert.Greater(t, report.Entries, 0)
	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "schedule_dates")

	svc.ClearCache()
	assert.Equal(t, 0, svc.CacheStats().Entries)
}

func TestDateInterpolation(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()

	dates, err := svc.DateInterpolation(ctx, res.Schedules[0], "", []float64{0, 0.5, 1})
	require.NoError(t, err)
	require.Len(t, dates, 3)
	assert.True(t, dates[0].Equal(day(0)))
	assert.True(t, dates[1].Equal(day(10)))
	assert.True(t, dates[2].Equal(day(20)))

	_, err = svc.DateInterpolation(ctx, res.Schedules[0], "", []float64{1.5})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
