// Package sessions binds opaque session identifiers to user ids.
//
// A Registry is the single owner of that mapping. Expiration and
// persistence are policies injected at construction time:
//
//   - without a TTL a session lives until it is destroyed;
//   - with a TTL a session older than the TTL resolves to nothing,
//     expiration is checked lazily on every Resolve and the expired
//     session is dropped then, Sweep removes the ones never looked up;
//   - with a Persister every session is also written to durable
//     storage and lookups go through it, so sessions survive restarts.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andrebq/authbox/internal/logutil"
	"github.com/andrebq/authbox/internal/metrics"
	"github.com/google/uuid"
)

type (
	Record struct {
		ID        string
		UserID    string
		CreatedAt time.Time
	}

	// Persister stores session records outside of the process.
	// LookupSession reports found=false, not an error, for unknown ids.
	Persister interface {
		SaveSession(ctx context.Context, rec Record) error
		LookupSession(ctx context.Context, id string) (rec Record, found bool, err error)
		DeleteSession(ctx context.Context, id string) (bool, error)
	}

	// Expirer is implemented by persisters able to drop old records in bulk.
	Expirer interface {
		DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	Registry struct {
		mu   sync.RWMutex
		byID map[string]Record

		ttl     time.Duration
		now     func() time.Time
		newID   func() string
		persist Persister
		metrics *metrics.Auth
	}

	Option func(*Registry)
)

var (
	ErrInvalidUser = errors.New("sessions: user id cannot be empty")
)

// WithTTL enables lazy expiration. Zero or negative values disable it.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithPersistence(p Persister) Option {
	return func(r *Registry) { r.persist = p }
}

func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

func WithMetrics(m *metrics.Auth) Option {
	return func(r *Registry) { r.metrics = m }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		byID:  make(map[string]Record),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) TTL() time.Duration { return r.ttl }

func (r *Registry) Persistent() bool { return r.persist != nil }

// Create binds a fresh session id to userID.
func (r *Registry) Create(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrInvalidUser
	}
	rec := Record{
		ID:        r.newID(),
		UserID:    userID,
		CreatedAt: r.now(),
	}
	if r.persist != nil {
		if err := r.persist.SaveSession(ctx, rec); err != nil {
			return "", fmt.Errorf("sessions: unable to persist session for user %v, cause %w", userID, err)
		}
	}
	r.mu.Lock()
	r.byID[rec.ID] = rec
	active := len(r.byID)
	r.mu.Unlock()

	r.metrics.SessionEvent(metrics.SessionCreated)
	r.metrics.ActiveSessions(active)
	return rec.ID, nil
}

// Resolve returns the user bound to id, or an empty string when the
// session is unknown or expired.
func (r *Registry) Resolve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	rec, found, err := r.lookup(ctx, id)
	if err != nil || !found {
		return "", err
	}
	if r.expired(rec) {
		r.forget(ctx, id)
		return "", nil
	}
	return rec.UserID, nil
}

// forget drops an expired session the first time it is seen, later
// lookups miss and the expiration is only counted once.
func (r *Registry) forget(ctx context.Context, id string) {
	r.mu.Lock()
	_, existed := r.byID[id]
	delete(r.byID, id)
	active := len(r.byID)
	r.mu.Unlock()

	if r.persist != nil {
		deleted, err := r.persist.DeleteSession(ctx, id)
		if err != nil {
			log := logutil.GetOrDefault(ctx)
			log.Error().Err(err).Msg("Unable to delete expired session")
		}
		existed = existed || deleted
	}
	if existed {
		r.metrics.SessionEvent(metrics.SessionExpired)
	}
	r.metrics.ActiveSessions(active)
}

func (r *Registry) lookup(ctx context.Context, id string) (Record, bool, error) {
	if r.persist == nil {
		r.mu.RLock()
		rec, found := r.byID[id]
		r.mu.RUnlock()
		return rec, found, nil
	}
	// the persisted record is authoritative, memory only mirrors it
	rec, found, err := r.persist.LookupSession(ctx, id)
	if err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Error().Err(err).Msg("Unable to lookup persisted session")
		return Record{}, false, fmt.Errorf("sessions: unable to lookup session, cause %w", err)
	}
	r.mu.Lock()
	if found {
		r.byID[id] = rec
	} else {
		delete(r.byID, id)
	}
	r.mu.Unlock()
	return rec, found, nil
}

func (r *Registry) expired(rec Record) bool {
	if r.ttl <= 0 {
		return false
	}
	return r.now().After(rec.CreatedAt.Add(r.ttl))
}

// Destroy removes the binding for id and reports whether it existed.
func (r *Registry) Destroy(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	r.mu.Lock()
	_, existed := r.byID[id]
	delete(r.byID, id)
	active := len(r.byID)
	r.mu.Unlock()

	if r.persist != nil {
		deleted, err := r.persist.DeleteSession(ctx, id)
		if err != nil {
			return existed, fmt.Errorf("sessions: unable to delete persisted session, cause %w", err)
		}
		existed = existed || deleted
	}
	if existed {
		r.metrics.SessionEvent(metrics.SessionDestroyed)
	}
	r.metrics.ActiveSessions(active)
	return existed, nil
}

// Active returns how many sessions are held in memory, expired or not.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Sweep drops expired sessions from memory and, when supported, from
// the persister. It returns how many in-memory entries were removed.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	var removed int
	for id, rec := range r.byID {
		if r.expired(rec) {
			delete(r.byID, id)
			removed++
		}
	}
	active := len(r.byID)
	r.mu.Unlock()

	log := logutil.GetOrDefault(ctx)
	if exp, ok := r.persist.(Expirer); ok {
		n, err := exp.DeleteSessionsBefore(ctx, r.now().Add(-r.ttl))
		if err != nil {
			log.Error().Err(err).Msg("Unable to sweep persisted sessions")
		} else if n > 0 {
			log.Debug().Int64("sessions.persisted", n).Msg("Persisted sessions swept")
		}
	}
	for i := 0; i < removed; i++ {
		r.metrics.SessionEvent(metrics.SessionSwept)
	}
	r.metrics.ActiveSessions(active)
	return removed
}

// StartSweeper calls Sweep every interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(ctx)
			}
		}
	}()
}
