package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jengzang/bim4d-backend-go/internal/animation"
	"github.com/jengzang/bim4d-backend-go/internal/cache"
	"github.com/jengzang/bim4d-backend-go/internal/classify"
	"github.com/jengzang/bim4d-backend-go/internal/contracts"
	"github.com/jengzang/bim4d-backend-go/internal/frames"
	"github.com/jengzang/bim4d-backend-go/internal/models"
	"github.com/jengzang/bim4d-backend-go/internal/profile"
	"github.com/jengzang/bim4d-backend-go/internal/scene"
	"github.com/jengzang/bim4d-backend-go/internal/schedule"
	"github.com/jengzang/bim4d-backend-go/internal/timeline"
)

// Errors returned by SequenceService
var (
	ErrNoDateRange     = errors.New("schedule has no dated tasks")
	ErrInvalidDocument = errors.New("invalid document")
	ErrInvalidRequest  = errors.New("invalid request")
)

// Document is the open document the service sequences
type Document interface {
	schedule.Source
	cache.Fingerprinter
	ListSchedules(ctx context.Context) ([]models.WorkSchedule, error)
	GetSchedule(ctx context.Context, id int64) (*models.WorkSchedule, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ProductColors(ctx context.Context) (map[int64]models.RGBA, error)
	ImportDocument(ctx context.Context, doc *models.Document) (*models.ImportResult, error)
}

// Options configures animation defaults
type Options struct {
	FPS        float64
	StartFrame int
	Cache      cache.Options
}

// SequenceService wires the sequencing core for the transport layer
type SequenceService struct {
	doc        Document
	cache      *cache.SequenceCache
	classifier *classify.Classifier
	builder    *timeline.Builder
	store      *profile.Store
	applier    *animation.Applier
	scene      *scene.Recorder
	playhead   *scene.Playhead
	opts       Options
	log        *slog.Logger

	// live sessions outlive the request that started them
	bg           context.Context
	session      sync.Mutex // held across stop, start and swap of a live session
	mu           sync.Mutex
	live         *animation.LiveUpdater
	liveProducts int
}

// NewSequenceService creates a sequence service
func NewSequenceService(doc Document, kv profile.KV, opts Options, logger *slog.Logger) *SequenceService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FPS <= 0 {
		opts.FPS = 24
	}
	if opts.Cache.Logger == nil {
		opts.Cache.Logger = logger
	}
	c := cache.New(doc, doc, opts.Cache)
	store := profile.NewStore(kv, logger)
	rec := scene.NewRecorder()
	return &SequenceService{
		doc:        doc,
		cache:      c,
		classifier: classify.New(classify.NewVectorized(c), classify.NewScalar(doc), logger),
		builder:    timeline.NewBuilder(doc, logger),
		store:      store,
		applier:    animation.NewApplier(rec, store, logger),
		scene:      rec,
		playhead:   scene.NewPlayhead(opts.StartFrame),
		opts:       opts,
		log:        logger.With("component", "sequence_service"),
		bg:         context.Background(),
	}
}

// ListSchedules returns every work schedule
func (s *SequenceService) ListSchedules(ctx context.Context) ([]models.WorkSchedule, error) {
	schedules, err := s.doc.ListSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

// ListProducts returns every product with its original color
func (s *SequenceService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.doc.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// ScheduleDates returns the dated tasks of a schedule and its overall range
func (s *SequenceService) ScheduleDates(ctx context.Context, scheduleID int64, source string) (*cache.ScheduleDates, error) {
	src, err := s.prepare(ctx, scheduleID, source)
	if err != nil {
		return nil, err
	}
	dates, ok := s.cache.ScheduleDates(ctx, scheduleID, src)
	if !ok {
		return nil, cache.ErrUnavailable
	}
	return dates, nil
}

// Hierarchy returns the nesting tree of a schedule
func (s *SequenceService) Hierarchy(ctx context.Context, scheduleID int64) (*cache.Hierarchy, error) {
	if _, err := s.doc.GetSchedule(ctx, scheduleID); err != nil {
		return nil, err
	}
	h, ok := s.cache.Hierarchy(ctx, scheduleID)
	if !ok {
		return nil, cache.ErrUnavailable
	}
	return h, nil
}

// DateInterpolation maps progress values in [0,1] onto the schedule range
func (s *SequenceService) DateInterpolation(ctx context.Context, scheduleID int64, source string, progress []float64) ([]time.Time, error) {
	src, err := s.prepare(ctx, scheduleID, source)
	if err != nil {
		return nil, err
	}
	for _, p := range progress {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: progress %v outside [0,1]", ErrInvalidRequest, p)
		}
	}
	dates, ok := s.cache.DateInterpolation(ctx, scheduleID, progress, src)
	if !ok {
		return nil, ErrNoDateRange
	}
	return dates, nil
}

// ClassifyRequest selects the date and window to classify at
type ClassifyRequest struct {
	Date   time.Time     `json:"date"`
	Source string        `json:"source"`
	Window models.Window `json:"window"`
}

// Classification is the bucket assignment at one date
type Classification struct {
	Date     time.Time                            `json:"date"`
	Source   models.DateSource                    `json:"source"`
	Strategy string                               `json:"strategy"`
	Buckets  map[models.ConstructionState][]int64 `json:"buckets"`
}

// Classify sorts the schedule's products into construction states at a date
func (s *SequenceService) Classify(ctx context.Context, scheduleID int64, req ClassifyRequest) (*Classification, error) {
	src, err := s.prepare(ctx, scheduleID, req.Source)
	if err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}
	buckets, strategy, err := s.classifier.Classify(ctx, classify.Request{
		ScheduleID: scheduleID,
		Date:       req.Date,
		Source:     src,
		Window:     req.Window,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to classify: %w", err)
	}
	return &Classification{Date: req.Date, Source: src, Strategy: strategy, Buckets: buckets.Summary()}, nil
}

// SnapshotRequest is a classification plus appearance pass at one date
type SnapshotRequest struct {
	ClassifyRequest
	Group string `json:"group,omitempty"`
	Apply bool   `json:"apply"`
}

// Snapshot is the state and look of every product at one date
type Snapshot struct {
	Classification
	Group string                         `json:"group"`
	Looks map[int64]timeline.ProductLook `json:"looks"`
}

// Snapshot classifies at a date and decides each product's look. With
// Apply set the looks are written to the scene.
func (s *SequenceService) Snapshot(ctx context.Context, scheduleID int64, req SnapshotRequest) (*Snapshot, error) {
	cls, err := s.Classify(ctx, scheduleID, req.ClassifyRequest)
	if err != nil {
		return nil, err
	}
	if err := s.applier.Prepare(ctx); err != nil {
		return nil, err
	}
	group, catalog, originals, err := s.appearance(ctx, req.Group)
	if err != nil {
		return nil, err
	}
	looks, err := s.builder.Snapshot(ctx, timeline.SnapshotRequest{
		ScheduleID: scheduleID,
		Date:       req.Date,
		Source:     cls.Source,
		Window:     req.Window,
		Group:      group,
		Catalog:    catalog,
		Originals:  originals,
	})
	if err != nil {
		return nil, err
	}
	if req.Apply {
		s.StopLive()
		if err := s.applier.ApplySnapshot(ctx, looks); err != nil {
			return nil, fmt.Errorf("failed to apply snapshot: %w", err)
		}
	}
	return &Snapshot{Classification: *cls, Group: group, Looks: looks}, nil
}

// AnimationRequest describes an animation run. Start and Finish default to
// the schedule's guessed range; Viz* narrow which tasks are shown.
type AnimationRequest struct {
	Source     string              `json:"source"`
	Start      *time.Time          `json:"start,omitempty"`
	Finish     *time.Time          `json:"finish,omitempty"`
	VizStart   *time.Time          `json:"viz_start,omitempty"`
	VizFinish  *time.Time          `json:"viz_finish,omitempty"`
	Speed      frames.SpeedRequest `json:"speed"`
	FPS        float64             `json:"fps,omitempty"`
	StartFrame *int                `json:"start_frame,omitempty"`
	Group      string              `json:"group,omitempty"`
}

// AnimationSettings resolves the date range and frame count of a run
func (s *SequenceService) AnimationSettings(ctx context.Context, scheduleID int64, req AnimationRequest) (frames.Settings, error) {
	src, err := s.prepare(ctx, scheduleID, req.Source)
	if err != nil {
		return frames.Settings{}, err
	}
	start, finish, err := s.dateRange(ctx, scheduleID, src, req)
	if err != nil {
		return frames.Settings{}, err
	}
	speed, err := req.Speed.Config()
	if err != nil {
		return frames.Settings{}, fmt.Errorf("%w: %v", frames.ErrInvalidSpeed, err)
	}
	fps := req.FPS
	if fps <= 0 {
		fps = s.opts.FPS
	}
	startFrame := s.opts.StartFrame
	if req.StartFrame != nil {
		startFrame = *req.StartFrame
	}
	return frames.NewSettings(start, finish, startFrame, fps, speed)
}

func (s *SequenceService) dateRange(ctx context.Context, scheduleID int64, src models.DateSource, req AnimationRequest) (time.Time, time.Time, error) {
	if req.Start != nil && req.Finish != nil {
		return *req.Start, *req.Finish, nil
	}
	var start, finish time.Time
	if dates, ok := s.cache.ScheduleDates(ctx, scheduleID, src); ok && dates.Start != nil {
		start, finish = *dates.Start, *dates.Finish
	} else {
		var found bool
		var err error
		start, finish, found, err = schedule.GuessDateRange(ctx, s.doc, scheduleID, src)
		if err != nil {
			return start, finish, fmt.Errorf("failed to guess date range: %w", err)
		}
		if !found {
			return start, finish, ErrNoDateRange
		}
	}
	if req.Start != nil {
		start = *req.Start
	}
	if req.Finish != nil {
		finish = *req.Finish
	}
	return start, finish, nil
}

// FrameStates classifies every frame of a run in one vectorized pass
func (s *SequenceService) FrameStates(ctx context.Context, scheduleID int64, req AnimationRequest) (map[int]*cache.FrameState, error) {
	settings, err := s.AnimationSettings(ctx, scheduleID, req)
	if err != nil {
		return nil, err
	}
	src, _ := models.ParseDateSource(req.Source)
	states, ok := s.cache.FrameStates(ctx, scheduleID, settings.StartFrame, settings.EndFrame(), settings.Start, settings.Finish, src)
	if !ok {
		return nil, cache.ErrUnavailable
	}
	return states, nil
}

// Timeline lays out the per-product frame plan of a run
func (s *SequenceService) Timeline(ctx context.Context, scheduleID int64, req AnimationRequest) (*timeline.Plan, error) {
	settings, err := s.AnimationSettings(ctx, scheduleID, req)
	if err != nil {
		return nil, err
	}
	if err := s.applier.Prepare(ctx); err != nil {
		return nil, err
	}
	group, catalog, originals, err := s.appearance(ctx, req.Group)
	if err != nil {
		return nil, err
	}
	src, _ := models.ParseDateSource(req.Source)
	return s.builder.Build(ctx, timeline.Request{
		ScheduleID: scheduleID,
		Settings:   settings,
		Source:     src,
		Window:     models.Window{Start: req.VizStart, Finish: req.VizFinish},
		Group:      group,
		Catalog:    catalog,
		Originals:  originals,
	})
}

// CacheStats reports cache occupancy and per-operation timings
func (s *SequenceService) CacheStats() cache.Report {
	return s.cache.Stats()
}

// ClearCache drops every cache entry
func (s *SequenceService) ClearCache() {
	s.cache.Clear()
	s.log.Info("cache cleared")
}

// Import validates a JSON document and writes it in one transaction
func (s *SequenceService) Import(ctx context.Context, body []byte) (*models.ImportResult, error) {
	if err := contracts.ValidateJSON(contracts.Document, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var doc models.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	res, err := s.doc.ImportDocument(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to import document: %w", err)
	}
	s.cache.Clear()
	s.log.Info("document imported", "schedules", len(res.Schedules), "tasks", res.Tasks, "products", res.Products)
	return res, nil
}

// prepare checks the schedule exists and parses the date source
func (s *SequenceService) prepare(ctx context.Context, scheduleID int64, source string) (models.DateSource, error) {
	src, err := models.ParseDateSource(source)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if _, err := s.doc.GetSchedule(ctx, scheduleID); err != nil {
		return "", err
	}
	return src, nil
}

// appearance loads the group to render with, the profile catalog and the
// products' original colors
func (s *SequenceService) appearance(ctx context.Context, group string) (string, *profile.Catalog, map[int64]models.RGBA, error) {
	if group == "" {
		var err error
		if group, err = s.store.ActiveGroup(ctx); err != nil {
			return "", nil, nil, err
		}
	}
	catalog, err := s.store.Catalog(ctx)
	if err != nil {
		return "", nil, nil, err
	}
	originals, err := s.doc.ProductColors(ctx)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to load product colors: %w", err)
	}
	return group, catalog, originals, nil
}
