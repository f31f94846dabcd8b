// Package timeline lays out, per tracked product, the three frame segments
// of every task that touches it.
package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jengzang/bim4d-backend-go/internal/classify"
	"github.com/jengzang/bim4d-backend-go/internal/frames"
	"github.com/jengzang/bim4d-backend-go/internal/models"
	"github.com/jengzang/bim4d-backend-go/internal/profile"
	"github.com/jengzang/bim4d-backend-go/internal/schedule"
)

// ProductFrame is one (product, task) pair laid out on the frame axis.
// Bounds is the temporal layout; Segments is what gets rendered, which
// differs from Bounds only for a static profile.
type ProductFrame struct {
	ProductID      int64               `json:"product_id"`
	TaskID         int64               `json:"task_id"`
	PredefinedType string              `json:"predefined_type"`
	Relationship   models.Relationship `json:"relationship"`
	TaskStart      time.Time           `json:"task_start"`
	TaskFinish     time.Time           `json:"task_finish"`
	StartFrame     int                 `json:"start_frame"`  // unclamped
	FinishFrame    int                 `json:"finish_frame"` // unclamped
	Profile        string              `json:"profile"`
	Static         bool                `json:"static"`
	Bounds         [3]Interval         `json:"bounds"`
	Segments       [3]Segment          `json:"segments"`
}

// Segment is one rendered interval
type Segment struct {
	Phase    Phase      `json:"phase"`
	Interval Interval   `json:"interval"`
	Look     Appearance `json:"look"`
}

// PhaseAt locates frame in the temporal layout and returns how far through
// that phase it is
func (pf *ProductFrame) PhaseAt(frame int) (Phase, float64) {
	phases := [3]Phase{BeforeStart, Active, AfterEnd}
	for i, iv := range pf.Bounds {
		if iv.Contains(frame) {
			if i == 1 {
				return Active, frames.ProgressAtFrame(frame, iv.Start, iv.End)
			}
			return phases[i], 0
		}
	}
	if frame < pf.Bounds[0].Start {
		return BeforeStart, 0
	}
	return AfterEnd, 0
}

// Plan is the complete layout for one animation run
type Plan struct {
	Settings frames.Settings          `json:"settings"`
	Group    string                   `json:"group"`
	Source   models.DateSource        `json:"source"`
	Products map[int64][]ProductFrame `json:"products"`
}

// ProductIDs returns the tracked products in ascending order
func (p *Plan) ProductIDs() []int64 {
	ids := make([]int64, 0, len(p.Products))
	for id := range p.Products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Request parameterizes a build. A zero Window defaults to the settings range.
type Request struct {
	ScheduleID int64
	Settings   frames.Settings
	Source     models.DateSource
	Window     models.Window
	Group      string
	Catalog    *profile.Catalog
	Originals  map[int64]models.RGBA
}

// Builder lays out plans from the document
type Builder struct {
	src schedule.Source
	log *slog.Logger
}

// NewBuilder creates a builder over src
func NewBuilder(src schedule.Source, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{src: src, log: logger.With("component", "timeline")}
}

type datedTask struct {
	task          *models.Task
	start, finish time.Time
}

// tasks returns every dated task once, nested tasks first
func (b *Builder) tasks(ctx context.Context, scheduleID int64, src models.DateSource) ([]datedTask, error) {
	seen := make(map[int64]bool)
	var out []datedTask
	err := schedule.Walk(ctx, b.src, scheduleID, schedule.PostOrder, func(t, _ *models.Task, _ int) error {
		if seen[t.ID] {
			return nil
		}
		seen[t.ID] = true
		start, finish, err := schedule.Dates(ctx, b.src, t, src)
		if err != nil {
			return err
		}
		if start == nil || finish == nil {
			return nil
		}
		out = append(out, datedTask{task: t, start: *start, finish: *finish})
		return nil
	})
	return out, err
}

// Build produces the plan. Tasks starting after the window are left out;
// tasks finished before it spend the whole animation in after_end.
func (b *Builder) Build(ctx context.Context, req Request) (*Plan, error) {
	s := req.Settings
	if s.TotalFrames < 1 {
		return nil, fmt.Errorf("settings have no frames")
	}
	if req.Catalog == nil {
		req.Catalog = profile.NewCatalog(nil, nil)
	}
	if req.Group == "" {
		req.Group = profile.DefaultGroup
	}
	vizStart, vizFinish := s.Start, s.Finish
	if req.Window.Start != nil {
		vizStart = *req.Window.Start
	}
	if req.Window.Finish != nil {
		vizFinish = *req.Window.Finish
	}

	tasks, err := b.tasks(ctx, req.ScheduleID, req.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to collect tasks: %w", err)
	}

	plan := &Plan{Settings: s, Group: req.Group, Source: req.Source, Products: make(map[int64][]ProductFrame)}
	first, last := s.StartFrame, s.EndFrame()
	skipped := 0
	for _, dt := range tasks {
		p := req.Catalog.ResolveTask(dt.task, req.Group)
		static := p.Static()
		if !static && dt.start.After(vizFinish) {
			skipped++
			continue
		}
		outputs, err := b.src.TaskOutputs(ctx, dt.task.ID)
		if err != nil {
			return nil, err
		}
		inputs, err := b.src.TaskInputs(ctx, dt.task.ID)
		if err != nil {
			return nil, err
		}
		if len(outputs) == 0 && len(inputs) == 0 {
			continue
		}

		sf, ff := s.TaskFrames(dt.start, dt.finish)
		var bounds [3]Interval
		switch {
		case static && dt.start.After(vizFinish):
			// kept past the window, never starts on screen
			bounds = split(first, last, last+1, last)
		case dt.finish.Before(vizStart):
			bounds = split(first, last, first, first-1)
		default:
			lo := clamp(sf, first, last)
			hi := clamp(ff, first, last)
			if hi < lo {
				hi = lo
			}
			bounds = split(first, last, lo, hi)
		}

		add := func(productID int64, rel models.Relationship) {
			pf := ProductFrame{
				ProductID:      productID,
				TaskID:         dt.task.ID,
				PredefinedType: dt.task.Type(),
				Relationship:   rel,
				TaskStart:      dt.start,
				TaskFinish:     dt.finish,
				StartFrame:     sf,
				FinishFrame:    ff,
				Profile:        p.Name,
				Static:         static,
				Bounds:         bounds,
			}
			pf.Segments = render(p, bounds, first, last, rel, original(req.Originals, productID))
			plan.Products[productID] = append(plan.Products[productID], pf)
		}
		for _, id := range outputs {
			add(id, models.RelationshipOutput)
		}
		for _, id := range inputs {
			add(id, models.RelationshipInput)
		}
	}
	b.log.Debug("timeline built", "schedule", req.ScheduleID, "tasks", len(tasks), "skipped", skipped, "products", len(plan.Products))
	return plan, nil
}

// render turns the temporal layout into segments for a profile. A static
// profile holds the start look over the whole range.
func render(p profile.Profile, bounds [3]Interval, first, last int, rel models.Relationship, orig models.RGBA) [3]Segment {
	if p.Static() {
		return [3]Segment{
			{Phase: BeforeStart, Interval: Interval{first, last}, Look: Look(p, BeforeStart, rel, orig)},
			{Phase: Active, Interval: Interval{last + 1, last}, Look: Look(p, Active, rel, orig)},
			{Phase: AfterEnd, Interval: Interval{last + 1, last}, Look: Look(p, AfterEnd, rel, orig)},
		}
	}
	return [3]Segment{
		{Phase: BeforeStart, Interval: bounds[0], Look: Look(p, BeforeStart, rel, orig)},
		{Phase: Active, Interval: bounds[1], Look: Look(p, Active, rel, orig)},
		{Phase: AfterEnd, Interval: bounds[2], Look: Look(p, AfterEnd, rel, orig)},
	}
}

// Restyle re-renders a laid-out product under another profile
func Restyle(pf ProductFrame, p profile.Profile, s frames.Settings, orig models.RGBA) ProductFrame {
	pf.Profile = p.Name
	pf.Static = p.Static()
	pf.Segments = render(p, pf.Bounds, s.StartFrame, s.EndFrame(), pf.Relationship, orig)
	return pf
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func original(originals map[int64]models.RGBA, id int64) models.RGBA {
	if c, ok := originals[id]; ok {
		return c
	}
	return models.White
}

// ProductLook is the snapshot appearance of one product
type ProductLook struct {
	ProductID int64       `json:"product_id"`
	TaskID    int64       `json:"task_id"`
	Phase     Phase       `json:"phase"`
	Visible   bool        `json:"visible"`
	Color     models.RGBA `json:"color"`
}

// SnapshotRequest parameterizes a single-date appearance pass
type SnapshotRequest struct {
	ScheduleID int64
	Date       time.Time
	Source     models.DateSource
	Window     models.Window
	Group      string
	Catalog    *profile.Catalog
	Originals  map[int64]models.RGBA
}

// Snapshot decides the look of every tracked product at one date. When
// several tasks touch a product, the one starting latest wins.
func (b *Builder) Snapshot(ctx context.Context, req SnapshotRequest) (map[int64]ProductLook, error) {
	if req.Catalog == nil {
		req.Catalog = profile.NewCatalog(nil, nil)
	}
	tasks, err := b.tasks(ctx, req.ScheduleID, req.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to collect tasks: %w", err)
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].start.Before(tasks[j].start) })

	out := make(map[int64]ProductLook)
	for _, dt := range tasks {
		tp, ok := classify.PhaseAt(dt.start, dt.finish, req.Date, req.Window)
		if !ok {
			continue
		}
		phase := PhaseOf(tp)
		progress := frames.Progress(req.Date, dt.start, dt.finish)
		p := req.Catalog.ResolveTask(dt.task, req.Group)
		if p.Static() {
			phase, progress = BeforeStart, 0
		}

		outputs, err := b.src.TaskOutputs(ctx, dt.task.ID)
		if err != nil {
			return nil, err
		}
		inputs, err := b.src.TaskInputs(ctx, dt.task.ID)
		if err != nil {
			return nil, err
		}
		set := func(id int64, rel models.Relationship) {
			look := Look(p, phase, rel, original(req.Originals, id))
			out[id] = ProductLook{ProductID: id, TaskID: dt.task.ID, Phase: phase, Visible: look.Visible, Color: look.At(progress)}
		}
		for _, id := range outputs {
			set(id, models.RelationshipOutput)
		}
		for _, id := range inputs {
			set(id, models.RelationshipInput)
		}
	}
	return out, nil
}
