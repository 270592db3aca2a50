//go:build sqlite_fts5

package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/learnvex/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS courses_fts USING fts5(
			id UNINDEXED,
			title,
			small_description,
			description,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, c models.Course) error {
	_, _ = tx.ExecContext(ctx, `DELETE FROM courses_fts WHERE id = ?`, c.ID)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO courses_fts (id, title, small_description, description) VALUES (?, ?, ?, ?)`,
		c.ID, c.Title, c.SmallDescription, c.Description)
	if err != nil {
		return fmt.Errorf("catalog: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, id string) {
	_, _ = tx.ExecContext(ctx, `DELETE FROM courses_fts WHERE id = ?`, id)
}

// SearchCourses performs an FTS5 full-text search over course text.
func (db *DB) SearchCourses(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT f.id, c.slug, c.title,
		       snippet(courses_fts, 3, '<b>', '</b>', '...', 32)
		FROM courses_fts f JOIN courses c ON c.id = f.id
		WHERE courses_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Slug, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
