package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return conn
}

func TestBaseKeepsConnection(t *testing.T) {
	conn := newTestDB(t)
	base := NewBase(conn)

	if base.db != conn {
		t.Fatalf("base should hold the connection it was built with")
	}
	if got := base.DB(nil); got != conn {
		t.Fatalf("nil context should return the raw connection")
	}
}

func TestBaseAttachesContext(t *testing.T) {
	base := NewBase(newTestDB(t))

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")
	bound := base.DB(ctx)

	if bound == nil || bound.Statement == nil {
		t.Fatalf("expected a statement-bound session")
	}
	if bound.Statement.Context != ctx {
		t.Fatalf("request context did not flow into the session")
	}
}
