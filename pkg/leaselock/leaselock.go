// Package leaselock serializes writers of a shared resource across processes
// with expiring rows in the app_locks table. A lease is renewed in the
// background until it is released; if renewal fails the lease context is
// cancelled with ErrLost as its cause.
package leaselock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy = errors.New("lease lock busy")
	ErrLost = errors.New("lease lock lost")
)

const (
	defaultTTL          = 5 * time.Minute
	defaultWaitInterval = 250 * time.Millisecond
	renewAttempts       = 3
)

// DB is the subset of a pgx connection or pool the lock needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client hands out leases. Holder tokens are "<holder>-<nanoid>".
type Client struct {
	db     DB
	holder string
	log    logger.LoggerInstance
}

// Option customizes a Client.
type Option func(*Client)

// WithHolder names the process in holder tokens, e.g. "worker".
func WithHolder(name string) Option {
	return func(c *Client) {
		c.holder = name
	}
}

func WithLogger(l logger.LoggerInstance) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func New(db DB, opts ...Option) *Client {
	c := &Client{db: db, holder: "lease", log: logger.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Options control one acquisition. Zero values select the defaults: a five
// minute TTL renewed at half the TTL, and no waiting.
type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	// Wait polls every WaitInterval plus up to WaitJitter until the lock is
	// free or ctx ends. Without Wait a held lock returns ErrBusy.
	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration
}

func (o Options) normalized() Options {
	if o.TTL.Milliseconds() <= 0 {
		o.TTL = defaultTTL
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, time.Second)
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = defaultWaitInterval
	}
	o.WaitJitter = max(o.WaitJitter, 0)
	return o
}

type Lease struct {
	Key   string
	Token string

	// Context is cancelled when the lease is released or lost.
	Context context.Context

	client *Client
	cancel context.CancelCauseFunc
	done   chan struct{}
	once   sync.Once
}

// WithLease runs fn while holding key. If the lease is lost while fn runs the
// result wraps ErrLost, since another holder may have written meanwhile.
func (c *Client) WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := c.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			c.log.Warn("[Lease] Failed to release lock", "key", key, "err", err)
		}
	}()

	err = fn(lease.Context)
	if lost := lease.Err(); lost != nil {
		return errors.Join(lost, err)
	}
	return err
}

func (c *Client) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, errors.New("lease lock key is empty")
	}
	opts = opts.normalized()

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	token := c.holder + "-" + id
	ttl := opts.TTL.Milliseconds()

	for {
		ok, err := c.tryAcquire(ctx, key, token, ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire %q: %w", key, err)
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		c.log.Debug("[Lease] Lock busy, waiting", "key", key)
		if err := sleep(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Key:     key,
		Token:   token,
		Context: leaseCtx,
		client:  c,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go l.keepAlive(opts.RenewEvery, ttl)

	c.log.Debug("[Lease] Acquired lock", "key", key, "token", token)
	return l, nil
}

func (c *Client) tryAcquire(ctx context.Context, key, token string, ttl int64) (bool, error) {
	var got string
	err := c.db.QueryRow(ctx, tryAcquireSQL, key, token, ttl).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got != "", nil
}

// Err returns ErrLost once renewal has failed, and nil while the lease is
// held or after a normal release.
func (l *Lease) Err() error {
	if cause := context.Cause(l.Context); errors.Is(cause, ErrLost) {
		return cause
	}
	return nil
}

func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		close(l.done)
		l.cancel(context.Canceled)
	})
	_, err := l.client.db.Exec(ctx, releaseSQL, l.Key, l.Token)
	return err
}

func (l *Lease) keepAlive(every time.Duration, ttl int64) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renew(ttl); err != nil {
				if l.Context.Err() != nil {
					return
				}
				l.client.log.Error("[Lease] Lost lock", "key", l.Key, "err", err)
				l.cancel(fmt.Errorf("%w: %w", ErrLost, err))
				return
			}
		}
	}
}

func (l *Lease) renew(ttl int64) error {
	var err error
	for attempt := range renewAttempts {
		if attempt > 0 {
			if err := sleep(l.Context, 200*time.Millisecond, 0); err != nil {
				return err
			}
		}
		ctx, cancel := context.WithTimeout(l.Context, 15*time.Second)
		var got string
		err = l.client.db.QueryRow(ctx, renewSQL, l.Key, l.Token, ttl).Scan(&got)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.New("lock taken over")
		}
	}
	return err
}

func sleep(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += rand.N(jitter + 1)
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const tryAcquireSQL = `
INSERT INTO app_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by  = EXCLUDED.locked_by,
    expires_at = EXCLUDED.expires_at
WHERE app_locks.expires_at < now()
   OR app_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key;
`

const renewSQL = `
UPDATE app_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lock_key = $1 AND locked_by = $2
RETURNING lock_key;
`

const releaseSQL = `
DELETE FROM app_locks
WHERE lock_key = $1 AND locked_by = $2;
`
