package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type fakeExecutor struct {
	calls int32
	tag   pgconn.CommandTag
	err   error
}

func (f *fakeExecutor) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.tag, f.err
}

func TestRunOnce_SweepsExpiredRows(t *testing.T) {
	db := &fakeExecutor{tag: pgconn.NewCommandTag("UPDATE 3")}
	sweeper := NewExpirySweeper(zap.NewNop(), db, nil, time.Minute)

	sweeper.runOnce(context.Background())

	if got := atomic.LoadInt32(&db.calls); got != 1 {
		t.Errorf("expected 1 exec, got %d", got)
	}
}

func TestRunOnce_ErrorDoesNotPanic(t *testing.T) {
	db := &fakeExecutor{err: errors.New("pg down")}
	sweeper := NewExpirySweeper(zap.NewNop(), db, nil, time.Minute)

	sweeper.runOnce(context.Background())
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	db := &fakeExecutor{tag: pgconn.NewCommandTag("UPDATE 0")}
	sweeper := NewExpirySweeper(zap.NewNop(), db, nil, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}

	if atomic.LoadInt32(&db.calls) == 0 {
		t.Error("expected at least one sweep before cancel")
	}
}

func TestStart_StopsOnStop(t *testing.T) {
	db := &fakeExecutor{tag: pgconn.NewCommandTag("UPDATE 0")}
	sweeper := NewExpirySweeper(zap.NewNop(), db, nil, time.Hour)

	done := make(chan struct{})
	go func() {
		sweeper.Start(context.Background())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	sweeper.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after Stop()")
	}
}
