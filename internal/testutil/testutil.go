// Package testutil provides shared test helpers for databases and change
// notifications.
package testutil

import (
	"os"
	"sync"
	"testing"

	"github.com/starford/learnvex/internal/catalog"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "learnvex-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Notifier records course events as "kind:courseID".
type Notifier struct {
	mu     sync.Mutex
	events []string
}

// PublishCourseEvent implements courseservice.Notifier.
func (n *Notifier) PublishCourseEvent(kind, courseID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, kind+":"+courseID)
}

// Events returns the recorded events in order.
func (n *Notifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}
