package seed

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/learnvex/internal/courseservice"
)

// Sync walks dir and imports every outline whose slug is not in the catalog
// yet. Existing courses are never touched. Files that fail to parse or
// import are logged and skipped. It returns the slugs it created.
func Sync(ctx context.Context, svc *courseservice.Service, dir string, logger *slog.Logger) ([]string, error) {
	taken, err := svc.Slugs(ctx)
	if err != nil {
		return nil, err
	}

	var created []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isOutline(path) {
			return nil
		}
		slug, err := importFile(ctx, svc, path, taken)
		if err != nil {
			logger.Warn("seed: import failed", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if slug != "" {
			logger.Info("seed: imported", slog.String("path", path), slog.String("slug", slug))
			created = append(created, slug)
		}
		return nil
	})
	return created, err
}

// importFile creates the course described by path unless its slug is taken.
// It returns the slug when a course was created.
func importFile(ctx context.Context, svc *courseservice.Service, path string, taken map[string]struct{}) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	o, err := Parse(data)
	if err != nil {
		return "", err
	}
	if _, ok := taken[o.Slug]; ok {
		return "", nil
	}
	if err := Import(ctx, svc, o); err != nil {
		return "", err
	}
	taken[o.Slug] = struct{}{}
	return o.Slug, nil
}

// Import creates the course with its chapters and lessons in outline order.
// The outline is stored atomically: when any part is rejected nothing is
// written, so the slug stays free for a corrected file.
func Import(ctx context.Context, svc *courseservice.Service, o Outline) error {
	if _, err := svc.ImportCourse(ctx, o.Course(), o.Structure()); err != nil {
		return fmt.Errorf("import course %s: %w", o.Slug, err)
	}
	return nil
}

func isOutline(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
