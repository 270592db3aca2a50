package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/learnvex/internal/apperr"
	"github.com/starford/learnvex/internal/models"
)

const courseColumns = `id, title, description, small_description, file_key, price, duration,
	level, category, status, slug, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCourse(row scanner) (models.Course, error) {
	var c models.Course
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.SmallDescription, &c.FileKey,
		&c.Price, &c.Duration, &c.Level, &c.Category, &c.Status, &c.Slug,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCourse inserts a course. An empty ID is filled with a new UUID.
func (db *DB) CreateCourse(ctx context.Context, c models.Course) (models.Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	c.CreatedAt, c.UpdatedAt = now, now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Course{}, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertCourse(ctx, tx, c); err != nil {
		return models.Course{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Course{}, fmt.Errorf("catalog: commit: %w", err)
	}
	return c, nil
}

func insertCourse(ctx context.Context, tx *sql.Tx, c models.Course) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO courses (`+courseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Title, c.Description, c.SmallDescription, c.FileKey, c.Price, c.Duration,
		c.Level, c.Category, c.Status, c.Slug, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return wrapConstraint("insert course", err)
	}
	return ftsUpsert(ctx, tx, c)
}

// UpdateCourse overwrites every editable field of an existing course.
func (db *DB) UpdateCourse(ctx context.Context, c models.Course) (models.Course, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Course{}, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	c.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx, `
		UPDATE courses SET
			title = ?, description = ?, small_description = ?, file_key = ?,
			price = ?, duration = ?, level = ?, category = ?, status = ?, slug = ?,
			updated_at = ?
		WHERE id = ?
	`, c.Title, c.Description, c.SmallDescription, c.FileKey, c.Price, c.Duration,
		c.Level, c.Category, c.Status, c.Slug, c.UpdatedAt, c.ID)
	if err != nil {
		return models.Course{}, wrapConstraint("update course", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Course{}, fmt.Errorf("catalog: course %s: %w", c.ID, apperr.ErrNotFound)
	}
	if err := ftsUpsert(ctx, tx, c); err != nil {
		return models.Course{}, err
	}

	updated, err := scanCourse(tx.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, c.ID))
	if err != nil {
		return models.Course{}, fmt.Errorf("catalog: reload course: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Course{}, fmt.Errorf("catalog: commit: %w", err)
	}
	return updated, nil
}

// GetCourse returns the course with the given id.
func (db *DB) GetCourse(ctx context.Context, id string) (models.Course, error) {
	c, err := scanCourse(db.conn.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Course{}, fmt.Errorf("catalog: course %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Course{}, fmt.Errorf("catalog: get course: %w", err)
	}
	return c, nil
}

// GetCourseBySlug returns the course with the given slug.
func (db *DB) GetCourseBySlug(ctx context.Context, slug string) (models.Course, error) {
	c, err := scanCourse(db.conn.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE slug = ?`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Course{}, fmt.Errorf("catalog: course %q: %w", slug, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Course{}, fmt.Errorf("catalog: get course by slug: %w", err)
	}
	return c, nil
}

// ListCourses returns a page of courses, newest first, and the total count.
func (db *DB) ListCourses(ctx context.Context, limit, offset int) ([]models.Course, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM courses`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count courses: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+courseColumns+` FROM courses
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list courses: %w", err)
	}
	defer rows.Close()

	out := []models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// DeleteCourse removes a course together with its chapters and lessons.
func (db *DB) DeleteCourse(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog: course %s: %w", id, apperr.ErrNotFound)
	}
	ftsDelete(ctx, tx, id)
	return tx.Commit()
}

// AllSlugs returns every course slug.
func (db *DB) AllSlugs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT slug FROM courses`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all slugs: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out[s] = struct{}{}
	}
	return out, rows.Err()
}

func wrapConstraint(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("catalog: %s: slug %w", op, apperr.ErrAlreadyExists)
	}
	return fmt.Errorf("catalog: %s: %w", op, err)
}
