package leaselock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type lock struct {
	holder  string
	expires time.Time
}

// locks emulates the app_locks table for the three statements of the package.
type locks struct {
	mu    sync.Mutex
	rows  map[string]lock
	fault error
}

func newLocks() *locks {
	return &locks{rows: map[string]lock{}}
}

type row struct {
	key string
	err error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.key
	return nil
}

func (l *locks) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fault != nil {
		return row{err: l.fault}
	}
	key, holder := args[0].(string), args[1].(string)
	expires := time.Now().Add(time.Duration(args[2].(int64)) * time.Millisecond)
	cur, held := l.rows[key]

	switch sql {
	case tryAcquireSQL:
		if held && cur.expires.After(time.Now()) && cur.holder != holder {
			return row{err: pgx.ErrNoRows}
		}
	case renewSQL:
		if !held || cur.holder != holder {
			return row{err: pgx.ErrNoRows}
		}
	default:
		return row{err: errors.New("unexpected statement")}
	}
	l.rows[key] = lock{holder: holder, expires: expires}
	return row{key: key}
}

func (l *locks) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sql != releaseSQL {
		return pgconn.CommandTag{}, errors.New("unexpected statement")
	}
	key, holder := args[0].(string), args[1].(string)
	if cur, ok := l.rows[key]; ok && cur.holder == holder {
		delete(l.rows, key)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.NewCommandTag("DELETE 0"), nil
}

func (l *locks) steal(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[key] = lock{holder: "thief", expires: time.Now().Add(time.Hour)}
}

func (l *locks) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

func (l *locks) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.rows)
}

func TestAcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	db := newLocks()
	c := New(db, WithHolder("worker"))

	lease, err := c.Acquire(ctx, "snapshot", Options{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !strings.HasPrefix(lease.Token, "worker-") {
		t.Fatalf("token %q lacks the holder prefix", lease.Token)
	}

	if _, err := c.Acquire(ctx, "snapshot", Options{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if other, err := c.Acquire(ctx, "other", Options{}); err != nil {
		t.Fatalf("independent key: %v", err)
	} else {
		_ = other.Release(ctx)
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if lease.Context.Err() == nil {
		t.Fatal("release must cancel the lease context")
	}
	if lease.Err() != nil {
		t.Fatalf("a released lease is not lost: %v", lease.Err())
	}

	again, err := c.Acquire(ctx, "snapshot", Options{})
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = again.Release(ctx)
}

func TestAcquireWaits(t *testing.T) {
	ctx := context.Background()
	db := newLocks()
	c := New(db)

	first, err := c.Acquire(ctx, "snapshot", Options{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = first.Release(ctx)
	}()

	second, err := c.Acquire(ctx, "snapshot", Options{Wait: true, WaitInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("waiting Acquire: %v", err)
	}
	_ = second.Release(ctx)

	held, _ := c.Acquire(ctx, "snapshot", Options{})
	defer held.Release(ctx)
	timeout, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if _, err := c.Acquire(timeout, "snapshot", Options{Wait: true, WaitInterval: 5 * time.Millisecond}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestWithLeaseReportsLoss(t *testing.T) {
	db := newLocks()
	c := New(db)
	opts := Options{TTL: 2 * time.Second, RenewEvery: 20 * time.Millisecond}

	err := c.WithLease(context.Background(), "snapshot", opts, func(ctx context.Context) error {
		db.steal("snapshot")
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrLost) {
		t.Fatalf("expected ErrLost, got %v", err)
	}

	db.clear()
	called := false
	err = c.WithLease(context.Background(), "snapshot", opts, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("WithLease: %v (called %v)", err, called)
	}
	if db.count() != 0 {
		t.Fatal("WithLease must release the lock")
	}
}

func TestAcquireFault(t *testing.T) {
	db := newLocks()
	db.fault = errors.New("connection refused")
	if _, err := New(db).Acquire(context.Background(), "snapshot", Options{}); !errors.Is(err, db.fault) {
		t.Fatalf("expected fault, got %v", err)
	}
	if _, err := New(db).Acquire(context.Background(), "", Options{}); err == nil {
		t.Fatal("expected error for an empty key")
	}
}

func TestOptionsNormalized(t *testing.T) {
	o := Options{}.normalized()
	if o.TTL != defaultTTL || o.RenewEvery != defaultTTL/2 || o.WaitInterval != defaultWaitInterval {
		t.Fatalf("defaults = %+v", o)
	}
	o = Options{TTL: time.Second, RenewEvery: time.Minute, WaitJitter: -1}.normalized()
	if o.RenewEvery != time.Second || o.WaitJitter != 0 {
		t.Fatalf("normalized = %+v", o)
	}
}
