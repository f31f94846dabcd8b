package repository

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jengzang/bim4d-backend-go/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// ScheduleRepository reads schedules, tasks and products. It is the
// sqlite-backed schedule.Source.
type ScheduleRepository struct {
	db   *sql.DB
	path string
}

// NewScheduleRepository creates a new schedule repository. path is the
// database file and feeds Fingerprint; pass "" for in-memory databases.
func NewScheduleRepository(db *sql.DB, path string) *ScheduleRepository {
	return &ScheduleRepository{db: db, path: path}
}

const taskColumns = `t.id, t.schedule_id, t.identification, t.name, t.predefined_type`

// ListSchedules returns every work schedule with its task count
func (r *ScheduleRepository) ListSchedules(ctx context.Context) ([]models.WorkSchedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, CAST(strftime('%s', s.created_at) AS INTEGER), (SELECT COUNT(*) FROM tasks t WHERE t.schedule_id = s.id)
		FROM work_schedules s
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []models.WorkSchedule
	for rows.Next() {
		var s models.WorkSchedule
		var created int64
		if err := rows.Scan(&s.ID, &s.Name, &created, &s.TaskCount); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		s.CreatedAt = time.Unix(created, 0).UTC()
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// GetSchedule returns one schedule or ErrNotFound
func (r *ScheduleRepository) GetSchedule(ctx context.Context, id int64) (*models.WorkSchedule, error) {
	var s models.WorkSchedule
	var created int64
	err := r.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, CAST(strftime('%s', s.created_at) AS INTEGER), (SELECT COUNT(*) FROM tasks t WHERE t.schedule_id = s.id)
		FROM work_schedules s WHERE s.id = ?`, id).Scan(&s.ID, &s.Name, &created, &s.TaskCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	s.CreatedAt = time.Unix(created, 0).UTC()
	return &s, nil
}

// RootTasks returns tasks of the schedule that are nested under nothing
func (r *ScheduleRepository) RootTasks(ctx context.Context, scheduleID int64) ([]*models.Task, error) {
	return r.queryTasks(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		WHERE t.schedule_id = ?
		  AND NOT EXISTS (SELECT 1 FROM task_nesting n WHERE n.child_id = t.id)
		ORDER BY t.position, t.id`, scheduleID)
}

// NestedTasks returns the direct children of a task in nesting order
func (r *ScheduleRepository) NestedTasks(ctx context.Context, taskID int64) ([]*models.Task, error) {
	tasks, err := r.queryTasks(ctx, `
		SELECT `+taskColumns+`
		FROM task_nesting n
		JOIN tasks t ON t.id = n.child_id
		WHERE n.parent_id = ?
		ORDER BY n.position, t.id`, taskID)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		parent := taskID
		t.ParentID = &parent
	}
	return tasks, nil
}

// TaskOutputs returns the products a task builds
func (r *ScheduleRepository) TaskOutputs(ctx context.Context, taskID int64) ([]int64, error) {
	return r.taskProducts(ctx, taskID, models.RelationshipOutput)
}

// TaskInputs returns the products a task consumes or removes
func (r *ScheduleRepository) TaskInputs(ctx context.Context, taskID int64) ([]int64, error) {
	return r.taskProducts(ctx, taskID, models.RelationshipInput)
}

func (r *ScheduleRepository) taskProducts(ctx context.Context, taskID int64, rel models.Relationship) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id FROM task_products WHERE task_id = ? AND relationship = ? ORDER BY product_id`,
		taskID, string(rel))
	if err != nil {
		return nil, fmt.Errorf("failed to query task %ss: %w", rel, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ScheduleRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	byID := make(map[int64]*models.Task)
	for rows.Next() {
		t := &models.Task{}
		if err := rows.Scan(&t.ID, &t.ScheduleID, &t.Identification, &t.Name, &t.PredefinedType); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	if len(tasks) == 0 {
		return tasks, nil
	}
	if err := r.loadTimes(ctx, byID); err != nil {
		return nil, err
	}
	return tasks, nil
}

// loadTimes attaches task_times rows to the given tasks in one query
func (r *ScheduleRepository) loadTimes(ctx context.Context, byID map[int64]*models.Task) error {
	placeholders := make([]string, 0, len(byID))
	args := make([]interface{}, 0, len(byID))
	for id := range byID {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, date_source, start_ns, finish_ns
		FROM task_times
		WHERE task_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY task_id, date_source`, args...)
	if err != nil {
		return fmt.Errorf("failed to query task times: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID        int64
			source        string
			start, finish sql.NullInt64
		)
		if err := rows.Scan(&taskID, &source, &start, &finish); err != nil {
			return fmt.Errorf("failed to scan task time: %w", err)
		}
		t := byID[taskID]
		t.Times = append(t.Times, models.TaskTime{
			Source: models.DateSource(source),
			Start:  fromNanos(start),
			Finish: fromNanos(finish),
		})
	}
	return rows.Err()
}

// ListProducts returns every product in id order
func (r *ScheduleRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, global_id, name, color_r, color_g, color_b, color_a
		FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.GlobalID, &p.Name, &p.Color[0], &p.Color[1], &p.Color[2], &p.Color[3]); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ProductColors returns the original color of every product
func (r *ScheduleRepository) ProductColors(ctx context.Context) (map[int64]models.RGBA, error) {
	products, err := r.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	colors := make(map[int64]models.RGBA, len(products))
	for _, p := range products {
		colors[p.ID] = p.Color
	}
	return colors, nil
}

// Fingerprint identifies the current revision of the database. File-backed
// databases hash path, size and mtime of the main and WAL files; otherwise
// row counts are hashed.
func (r *ScheduleRepository) Fingerprint() (string, error) {
	h := md5.New()
	if r.path != "" && r.path != ":memory:" {
		info, err := os.Stat(r.path)
		if err == nil {
			fmt.Fprintf(h, "%s|%d|%d", r.path, info.Size(), info.ModTime().UnixNano())
			if wal, err := os.Stat(r.path + "-wal"); err == nil {
				fmt.Fprintf(h, "|%d|%d", wal.Size(), wal.ModTime().UnixNano())
			}
			return hex.EncodeToString(h.Sum(nil)), nil
		}
	}

	var tasks, times, products, links, nesting int64
	err := r.db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM tasks), (SELECT COUNT(*) FROM task_times),
		       (SELECT COUNT(*) FROM products), (SELECT COUNT(*) FROM task_products),
		       (SELECT COUNT(*) FROM task_nesting)`).Scan(&tasks, &times, &products, &links, &nesting)
	if err != nil {
		return "", fmt.Errorf("failed to count entities: %w", err)
	}
	fmt.Fprintf(h, "%d|%d|%d|%d|%d", tasks, times, products, links, nesting)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fromNanos(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func toNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
