package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/learnvex/internal/apperr"
	"github.com/starford/learnvex/internal/models"
)

// Structure returns the chapter/lesson tree of a course ordered by position.
// Chapters are returned collapsed.
func (db *DB) Structure(ctx context.Context, courseID string) (models.Structure, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM courses WHERE id = ?`, courseID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Structure{}, fmt.Errorf("catalog: course %s: %w", courseID, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Structure{}, fmt.Errorf("catalog: structure: %w", err)
	}

	out := models.Structure{CourseID: courseID, Chapters: []models.Chapter{}}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, position FROM chapters
		WHERE course_id = ?
		ORDER BY position, rowid
	`, courseID)
	if err != nil {
		return models.Structure{}, fmt.Errorf("catalog: list chapters: %w", err)
	}
	byID := make(map[string]int)
	for rows.Next() {
		ch := models.Chapter{Lessons: []models.Lesson{}}
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.Position); err != nil {
			rows.Close()
			return models.Structure{}, err
		}
		byID[ch.ID] = len(out.Chapters)
		out.Chapters = append(out.Chapters, ch)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.Structure{}, err
	}

	lrows, err := db.conn.QueryContext(ctx, `
		SELECT l.id, l.chapter_id, l.title, l.description, l.thumbnail_key, l.video_key, l.position
		FROM lessons l JOIN chapters c ON c.id = l.chapter_id
		WHERE c.course_id = ?
		ORDER BY l.position, l.rowid
	`, courseID)
	if err != nil {
		return models.Structure{}, fmt.Errorf("catalog: list lessons: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var l models.Lesson
		if err := lrows.Scan(&l.ID, &l.ChapterID, &l.Title, &l.Description, &l.ThumbnailKey, &l.VideoKey, &l.Position); err != nil {
			return models.Structure{}, err
		}
		i := byID[l.ChapterID]
		out.Chapters[i].Lessons = append(out.Chapters[i].Lessons, l)
	}
	return out, lrows.Err()
}

// CreateChapter appends a chapter at the end of a course.
func (db *DB) CreateChapter(ctx context.Context, courseID, title string) (models.Chapter, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Chapter{}, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM courses WHERE id = ?`, courseID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chapter{}, fmt.Errorf("catalog: course %s: %w", courseID, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Chapter{}, fmt.Errorf("catalog: create chapter: %w", err)
	}

	ch := models.Chapter{ID: uuid.NewString(), Title: title, Lessons: []models.Lesson{}}
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM chapters WHERE course_id = ?`, courseID,
	).Scan(&ch.Position)
	if err != nil {
		return models.Chapter{}, fmt.Errorf("catalog: next chapter position: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chapters (id, course_id, title, position) VALUES (?, ?, ?, ?)`,
		ch.ID, courseID, ch.Title, ch.Position)
	if err != nil {
		return models.Chapter{}, fmt.Errorf("catalog: insert chapter: %w", err)
	}
	return ch, tx.Commit()
}

// CreateLesson appends a lesson at the end of its chapter. The chapter must
// belong to courseID.
func (db *DB) CreateLesson(ctx context.Context, courseID string, l models.Lesson) (models.Lesson, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Lesson{}, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM chapters WHERE id = ? AND course_id = ?`, l.ChapterID, courseID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Lesson{}, fmt.Errorf("catalog: chapter %s: %w", l.ChapterID, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Lesson{}, fmt.Errorf("catalog: create lesson: %w", err)
	}

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM lessons WHERE chapter_id = ?`, l.ChapterID,
	).Scan(&l.Position)
	if err != nil {
		return models.Lesson{}, fmt.Errorf("catalog: next lesson position: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO lessons (id, chapter_id, title, description, thumbnail_key, video_key, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.ChapterID, l.Title, l.Description, l.ThumbnailKey, l.VideoKey, l.Position)
	if err != nil {
		return models.Lesson{}, fmt.Errorf("catalog: insert lesson: %w", err)
	}
	return l, tx.Commit()
}

// ReorderChapters writes new chapter positions in one transaction. Every
// update must name a chapter of courseID; otherwise nothing is written.
func (db *DB) ReorderChapters(ctx context.Context, courseID string, updates []models.PositionUpdate) error {
	return db.reorder(ctx, `UPDATE chapters SET position = ? WHERE id = ? AND course_id = ?`, courseID, updates)
}

// ReorderLessons writes new lesson positions in one transaction. Every
// update must name a lesson of chapterID; otherwise nothing is written.
func (db *DB) ReorderLessons(ctx context.Context, chapterID string, updates []models.PositionUpdate) error {
	return db.reorder(ctx, `UPDATE lessons SET position = ? WHERE id = ? AND chapter_id = ?`, chapterID, updates)
}

func (db *DB) reorder(ctx context.Context, query, parentID string, updates []models.PositionUpdate) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("catalog: prepare reorder: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		res, err := stmt.ExecContext(ctx, u.Position, u.ID, parentID)
		if err != nil {
			return fmt.Errorf("catalog: reorder %s: %w", u.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("catalog: reorder %s under %s: %w", u.ID, parentID, apperr.ErrNotFound)
		}
	}
	return tx.Commit()
}

// ImportCourse inserts a course together with its chapters and lessons in
// one transaction. Positions follow slice order; empty IDs are filled with
// new UUIDs. Either the whole tree is stored or nothing is.
func (db *DB) ImportCourse(ctx context.Context, c models.Course, chapters []models.Chapter) (models.Structure, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	c.CreatedAt, c.UpdatedAt = now, now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Structure{}, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertCourse(ctx, tx, c); err != nil {
		return models.Structure{}, err
	}

	chStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chapters (id, course_id, title, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return models.Structure{}, fmt.Errorf("catalog: prepare chapter insert: %w", err)
	}
	defer chStmt.Close()
	lStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lessons (id, chapter_id, title, description, thumbnail_key, video_key, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return models.Structure{}, fmt.Errorf("catalog: prepare lesson insert: %w", err)
	}
	defer lStmt.Close()

	out := models.Structure{CourseID: c.ID, Chapters: make([]models.Chapter, 0, len(chapters))}
	for i, ch := range chapters {
		ch = ch.Clone()
		if ch.ID == "" {
			ch.ID = uuid.NewString()
		}
		ch.Position = i + 1
		ch.Expanded = false
		if _, err := chStmt.ExecContext(ctx, ch.ID, c.ID, ch.Title, ch.Position); err != nil {
			return models.Structure{}, fmt.Errorf("catalog: insert chapter %q: %w", ch.Title, err)
		}
		if ch.Lessons == nil {
			ch.Lessons = []models.Lesson{}
		}
		for j := range ch.Lessons {
			l := &ch.Lessons[j]
			if l.ID == "" {
				l.ID = uuid.NewString()
			}
			l.ChapterID = ch.ID
			l.Position = j + 1
			_, err := lStmt.ExecContext(ctx, l.ID, l.ChapterID, l.Title, l.Description, l.ThumbnailKey, l.VideoKey, l.Position)
			if err != nil {
				return models.Structure{}, fmt.Errorf("catalog: insert lesson %q: %w", l.Title, err)
			}
		}
		out.Chapters = append(out.Chapters, ch)
	}

	if err := tx.Commit(); err != nil {
		return models.Structure{}, fmt.Errorf("catalog: commit: %w", err)
	}
	return out, nil
}
