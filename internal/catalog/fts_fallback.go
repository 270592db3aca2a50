//go:build !sqlite_fts5

package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/learnvex/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the courses table.
	return nil
}

func ftsUpsert(_ context.Context, _ *sql.Tx, _ models.Course) error { return nil }

func ftsDelete(_ context.Context, _ *sql.Tx, _ string) {}

// SearchCourses performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) SearchCourses(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, slug, title, substr(small_description, 1, 200)
		FROM courses
		WHERE title LIKE ? OR small_description LIKE ? OR description LIKE ?
		ORDER BY created_at DESC
		LIMIT ?
	`, like, like, like, limit)
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
