package blocklist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type fakeRow struct {
	reason    string
	createdAt time.Time
	err       error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.reason
	*(dest[1].(*time.Time)) = r.createdAt
	return nil
}

type fakeQuerier struct {
	row      *fakeRow
	lastSQL  string
	lastArgs []any
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.lastSQL = sql
	q.lastArgs = args
	return q.row
}

func TestCheckKnownBad(t *testing.T) {
	blockedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	q := &fakeQuerier{row: &fakeRow{reason: "csam", createdAt: blockedAt}}
	r := &Repo{pool: q, table: "blocked_content_hashes", logger: zap.NewNop()}

	got := r.Check(context.Background(), "deadbeefdeadbeef")
	if !got.KnownBad {
		t.Fatal("expected known bad")
	}
	if got.Reason != "csam" {
		t.Errorf("reason = %q, want %q", got.Reason, "csam")
	}
	if !got.BlockedAt.Equal(blockedAt) {
		t.Errorf("blockedAt = %v, want %v", got.BlockedAt, blockedAt)
	}
	if len(q.lastArgs) != 1 || q.lastArgs[0] != "deadbeefdeadbeef" {
		t.Errorf("query args = %v", q.lastArgs)
	}
}

func TestCheckNoRows(t *testing.T) {
	q := &fakeQuerier{row: &fakeRow{err: pgx.ErrNoRows}}
	r := &Repo{pool: q, table: "blocked_content_hashes", logger: zap.NewNop()}

	if got := r.Check(context.Background(), "cafebabecafebabe"); got.KnownBad {
		t.Error("unknown hash should not be blocked")
	}
}

func TestCheckSwallowsErrors(t *testing.T) {
	q := &fakeQuerier{row: &fakeRow{err: errors.New("connection refused")}}
	r := &Repo{pool: q, table: "blocked_content_hashes", logger: zap.NewNop()}

	if got := r.Check(context.Background(), "cafebabecafebabe"); got.KnownBad {
		t.Error("backend failure must report not blocked")
	}
}

func TestCheckDisabled(t *testing.T) {
	r := New(nil, "blocked_content_hashes", zap.NewNop())

	if got := r.Check(context.Background(), "cafebabecafebabe"); got.KnownBad {
		t.Error("disabled repo must report not blocked")
	}
}
