package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/project"
)

const projectColumns = `id, category, name, application_period, support1, support2, target,
	location, etc, notification_date, is_active, phone, email, requirements`

// ReplaceProjects swaps the whole catalog for projects in one transaction.
// An import is a full replacement, never a merge. When ids repeat, the later
// row wins.
func (db *DB) ReplaceProjects(ctx context.Context, projects []project.Project) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM projects"); err != nil {
		return fmt.Errorf("delete existing projects: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO projects (`+projectColumns+`, position, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	importedAt := nowUnix()
	for i, p := range projects {
		if !p.Valid() {
			return apperrors.NewValidationError("id/name", fmt.Sprintf("project at position %d has no id or name", i))
		}
		_, err := stmt.ExecContext(ctx,
			p.ID, string(p.Category), p.Name, p.ApplicationPeriod, p.Support1, p.Support2, p.Target,
			p.Location, p.Etc, p.NotificationDate, p.IsActive, p.Phone, p.Email, p.Requirements,
			i, importedAt,
		)
		if err != nil {
			return fmt.Errorf("insert project %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListProjects returns the catalog in import order.
func (db *DB) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// GetProject returns one project or ErrNotFound.
func (db *DB) GetProject(ctx context.Context, id string) (project.Project, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return project.Project{}, fmt.Errorf("project %s: %w", id, apperrors.ErrNotFound)
	}
	return p, err
}

// CountProjects returns the catalog size.
func (db *DB) CountProjects(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&n); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

// SeedIfEmpty stores projects only when the catalog is empty. It reports
// whether anything was written.
func (db *DB) SeedIfEmpty(ctx context.Context, projects []project.Project) (bool, error) {
	n, err := db.CountProjects(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := db.ReplaceProjects(ctx, projects); err != nil {
		return false, fmt.Errorf("seed projects: %w", err)
	}
	return true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (project.Project, error) {
	var (
		p        project.Project
		category string
	)
	err := s.Scan(
		&p.ID, &category, &p.Name, &p.ApplicationPeriod, &p.Support1, &p.Support2, &p.Target,
		&p.Location, &p.Etc, &p.NotificationDate, &p.IsActive, &p.Phone, &p.Email, &p.Requirements,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return project.Project{}, err
	}
	if err != nil {
		return project.Project{}, fmt.Errorf("scan project: %w", err)
	}
	p.Category = project.Category(category)
	return p, nil
}
