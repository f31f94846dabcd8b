package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/jengzang/bim4d-backend-go/internal/database"
	"github.com/jengzang/bim4d-backend-go/internal/models"
)

// ImportDocument writes products and schedules in a single transaction.
// Products are upserted by global id; schedules are always appended.
func (r *ScheduleRepository) ImportDocument(ctx context.Context, doc *models.Document) (*models.ImportResult, error) {
	result := &models.ImportResult{}
	err := database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		products, err := upsertProducts(ctx, tx, doc.Products)
		if err != nil {
			return err
		}
		result.Products = len(doc.Products)

		imp := &importer{tx: tx, products: products, result: result}
		for _, s := range doc.Schedules {
			res, err := tx.ExecContext(ctx, `INSERT INTO work_schedules (name) VALUES (?)`, s.Name)
			if err != nil {
				return fmt.Errorf("failed to insert schedule %q: %w", s.Name, err)
			}
			scheduleID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get schedule id: %w", err)
			}
			result.Schedules = append(result.Schedules, scheduleID)
			for i := range s.Tasks {
				if _, err := imp.insertTask(ctx, scheduleID, nil, i, &s.Tasks[i]); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func upsertProducts(ctx context.Context, tx *sql.Tx, products []models.DocumentProduct) (map[string]int64, error) {
	ids := make(map[string]int64, len(products))
	for _, p := range products {
		color := models.White
		if len(p.Color) > 0 {
			c, err := models.ColorFromSlice(p.Color)
			if err != nil {
				return nil, fmt.Errorf("product %s: %w", p.GlobalID, err)
			}
			color = c
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (global_id, name, color_r, color_g, color_b, color_a)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(global_id) DO UPDATE SET
				name = excluded.name,
				color_r = excluded.color_r, color_g = excluded.color_g,
				color_b = excluded.color_b, color_a = excluded.color_a`,
			p.GlobalID, p.Name, color[0], color[1], color[2], color[3])
		if err != nil {
			return nil, fmt.Errorf("failed to upsert product %s: %w", p.GlobalID, err)
		}
		var id int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM products WHERE global_id = ?`, p.GlobalID).Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to resolve product %s: %w", p.GlobalID, err)
		}
		ids[p.GlobalID] = id
	}
	return ids, nil
}

type importer struct {
	tx       *sql.Tx
	products map[string]int64
	result   *models.ImportResult
}

func (imp *importer) insertTask(ctx context.Context, scheduleID int64, parent *int64, position int, t *models.DocumentTask) (int64, error) {
	predefined := t.PredefinedType
	if predefined == "" {
		predefined = models.TypeNotDefined
	}
	res, err := imp.tx.ExecContext(ctx, `
		INSERT INTO tasks (schedule_id, identification, name, predefined_type, position)
		VALUES (?, ?, ?, ?, ?)`, scheduleID, t.Identification, t.Name, predefined, position)
	if err != nil {
		return 0, fmt.Errorf("failed to insert task %q: %w", t.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get task id: %w", err)
	}
	imp.result.Tasks++

	if parent != nil {
		if _, err := imp.tx.ExecContext(ctx,
			`INSERT INTO task_nesting (parent_id, child_id, position) VALUES (?, ?, ?)`,
			*parent, id, position); err != nil {
			return 0, fmt.Errorf("failed to nest task %q: %w", t.Name, err)
		}
	}

	sources := make([]string, 0, len(t.Times))
	for s := range t.Times {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		src, err := models.ParseDateSource(s)
		if err != nil {
			return 0, fmt.Errorf("task %q: %w", t.Name, err)
		}
		tt := t.Times[s]
		if _, err := imp.tx.ExecContext(ctx,
			`INSERT INTO task_times (task_id, date_source, start_ns, finish_ns) VALUES (?, ?, ?, ?)`,
			id, string(src), toNanos(tt.Start), toNanos(tt.Finish)); err != nil {
			return 0, fmt.Errorf("failed to insert times for task %q: %w", t.Name, err)
		}
	}

	if err := imp.link(ctx, id, t.Name, t.Outputs, models.RelationshipOutput); err != nil {
		return 0, err
	}
	if err := imp.link(ctx, id, t.Name, t.Inputs, models.RelationshipInput); err != nil {
		return 0, err
	}

	for i := range t.Tasks {
		if _, err := imp.insertTask(ctx, scheduleID, &id, i, &t.Tasks[i]); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (imp *importer) link(ctx context.Context, taskID int64, taskName string, globalIDs []string, rel models.Relationship) error {
	for _, gid := range globalIDs {
		productID, ok := imp.products[gid]
		if !ok {
			// products from an earlier import are still valid targets
			err := imp.tx.QueryRowContext(ctx, `SELECT id FROM products WHERE global_id = ?`, gid).Scan(&productID)
			if err == sql.ErrNoRows {
				return fmt.Errorf("task %q references unknown product %s: %w", taskName, gid, ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("failed to resolve product %s: %w", gid, err)
			}
			imp.products[gid] = productID
		}
		if _, err := imp.tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_products (task_id, product_id, relationship) VALUES (?, ?, ?)`,
			taskID, productID, string(rel)); err != nil {
			return fmt.Errorf("failed to link product %s: %w", gid, err)
		}
		imp.result.Links++
	}
	return nil
}
