// Command snapshot classifies a schedule at one date against a sqlite
// document, timing the scalar and vectorized strategies side by side.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jengzang/bim4d-backend-go/internal/cache"
	"github.com/jengzang/bim4d-backend-go/internal/classify"
	"github.com/jengzang/bim4d-backend-go/internal/contracts"
	"github.com/jengzang/bim4d-backend-go/internal/database"
	"github.com/jengzang/bim4d-backend-go/internal/logger"
	"github.com/jengzang/bim4d-backend-go/internal/models"
	"github.com/jengzang/bim4d-backend-go/internal/repository"
	"github.com/jengzang/bim4d-backend-go/internal/stats"
)

type report struct {
	ScheduleID int64                                `json:"schedule_id"`
	Date       time.Time                            `json:"date"`
	Source     models.DateSource                    `json:"source"`
	Equivalent bool                                 `json:"equivalent"`
	Buckets    map[models.ConstructionState][]int64 `json:"buckets"`
	Timings    map[string]stats.Summary             `json:"timings_seconds"`
	Cache      cache.Report                         `json:"cache"`
}

func main() {
	dbPath := flag.String("db", "./data/sequence.db", "sqlite document")
	importPath := flag.String("import", "", "JSON document to import first")
	scheduleID := flag.Int64("schedule", 1, "work schedule id")
	dateStr := flag.String("date", "", "snapshot date, RFC 3339 (default: middle of the schedule)")
	sourceStr := flag.String("source", "SCHEDULE", "date source: SCHEDULE, ACTUAL, EARLY or LATE")
	runs := flag.Int("runs", 20, "timed runs per strategy")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(logger.NewConsoleHandler(logger.ConsoleOptions{Writer: os.Stderr, Level: level, Color: true}))

	if err := run(log, *dbPath, *importPath, *scheduleID, *dateStr, *sourceStr, *runs); err != nil {
		log.Error("snapshot failed", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, dbPath, importPath string, scheduleID int64, dateStr, sourceStr string, runs int) error {
	ctx := context.Background()

	db, err := database.Open(database.Config{Path: dbPath})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.NewMigrationManager(db).RunMigrations(); err != nil {
		return err
	}
	repo := repository.NewScheduleRepository(db, dbPath)

	if importPath != "" {
		body, err := os.ReadFile(importPath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", importPath, err)
		}
		if err := contracts.ValidateJSON(contracts.Document, body); err != nil {
			return err
		}
		var doc models.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return fmt.Errorf("failed to decode %s: %w", importPath, err)
		}
		res, err := repo.ImportDocument(ctx, &doc)
		if err != nil {
			return err
		}
		log.Info("imported document", "schedules", res.Schedules, "tasks", res.Tasks)
	}

	source, err := models.ParseDateSource(sourceStr)
	if err != nil {
		return err
	}
	c := cache.New(repo, repo, cache.Options{Logger: log})
	date, err := snapshotDate(ctx, c, scheduleID, source, dateStr)
	if err != nil {
		return err
	}

	req := classify.Request{ScheduleID: scheduleID, Date: date, Source: source}
	strategies := []classify.Strategy{classify.NewScalar(repo), classify.NewVectorized(c)}
	results := make([]*models.StateBuckets, len(strategies))
	timings := make(map[string]stats.Summary, len(strategies))

	for i, s := range strategies {
		sampler := stats.NewSampler(runs)
		for n := 0; n < runs; n++ {
			start := time.Now()
			b, err := s.Classify(ctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Name(), err)
			}
			sampler.Observe(time.Since(start))
			results[i] = b
		}
		timings[s.Name()] = sampler.Summary()
		log.Debug("strategy timed", "strategy", s.Name(), "runs", runs)
	}

	out := report{
		ScheduleID: scheduleID,
		Date:       date,
		Source:     source,
		Equivalent: results[0].Equal(results[1]),
		Buckets:    results[0].Summary(),
		Timings:    timings,
		Cache:      c.Stats(),
	}
	if !out.Equivalent {
		log.Warn("strategies disagree", "schedule_id", scheduleID, "date", date)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// snapshotDate parses dateStr or picks the middle of the schedule
func snapshotDate(ctx context.Context, c *cache.SequenceCache, scheduleID int64, src models.DateSource, dateStr string) (time.Time, error) {
	if dateStr != "" {
		return time.Parse(time.RFC3339, dateStr)
	}
	dates, ok := c.DateInterpolation(ctx, scheduleID, []float64{0.5}, src)
	if !ok || len(dates) == 0 {
		return time.Time{}, fmt.Errorf("schedule %d has no dated tasks, pass -date", scheduleID)
	}
	return dates[0], nil
}
