// Package cache keeps a local sqlite mirror of the last delivered
// snapshot, per identity. It is read once at startup so the list is
// populated before the first push arrives; every later snapshot
// replaces the mirror wholesale. The remote store stays the single
// source of truth.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

type Cache struct {
	db *sql.DB
}

func Open(path string) (*Cache, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Cache{db: db}, nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Load returns the mirrored snapshot for an identity in creation
// order.
func (c *Cache) Load(ctx context.Context, identityID string) ([]model.Task, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, text, completed, created_at, due_date FROM tasks WHERE identity_id = ? ORDER BY created_at, id",
		identityID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var task model.Task
		var dueDate sql.NullTime
		if err := rows.Scan(&task.ID, &task.Text, &task.Completed, &task.CreatedAt, &dueDate); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if dueDate.Valid {
			due := dueDate.Time
			task.DueDate = &due
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// Save replaces the mirrored snapshot for an identity with the given
// one. This is a wholesale replacement, never a merge.
func (c *Cache) Save(ctx context.Context, identityID string, tasks []model.Task) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE identity_id = ?", identityID); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	for _, task := range tasks {
		var dueDate sql.NullTime
		if task.DueDate != nil {
			dueDate = sql.NullTime{Time: *task.DueDate, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tasks (identity_id, id, text, completed, created_at, due_date) VALUES (?, ?, ?, ?, ?, ?)",
			identityID, task.ID, task.Text, task.Completed, task.CreatedAt, dueDate); err != nil {
			return fmt.Errorf("store task %s: %w", task.ID, err)
		}
	}

	return tx.Commit()
}
