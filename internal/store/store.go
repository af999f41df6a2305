// Package store provides a client-session state container whose state lives in
// memory and is mirrored to a pluggable durability adapter.
//
// Mutations are serialized: each Update runs against the latest in-memory
// state and is persisted inside the same critical section, so an earlier,
// slower mutation can never overwrite a later one. Persistence failures are
// reported but never roll back an applied mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ErrNoChange may be returned by an Update function to leave state untouched
// without it being treated as a failure.
var ErrNoChange = errors.New("no change")

// Adapter loads and saves snapshots of a single store.
// Load returns an error matching ErrNotFound when nothing was saved yet.
type Adapter[S any] interface {
	Load(ctx context.Context) (S, error)
	Save(ctx context.Context, snapshot S) error
}

// PersistenceError wraps a failed adapter call.
type PersistenceError struct {
	Store string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s snapshot: %v", e.Store, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Change is delivered to subscribers after every applied mutation.
type Change[S any] struct {
	State S
	// Err is set when the mutation was applied but could not be persisted.
	Err error
}

type Option[S any] func(*Store[S])

// WithNormalize installs a hook applied to every state the store accepts,
// including the rehydrated one. Used to rebuild derived indexes.
func WithNormalize[S any](fn func(S) S) Option[S] {
	return func(s *Store[S]) { s.normalize = fn }
}

func WithLogger[S any](logger zerolog.Logger) Option[S] {
	return func(s *Store[S]) { s.logger = logger }
}

type Store[S any] struct {
	name    string
	adapter Adapter[S]
	initial S

	mu    sync.Mutex
	state S

	// notifyMu is taken before mu is released so subscribers observe
	// changes in the order they were applied.
	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     map[int]func(Change[S])
	nextSub  int

	pending   atomic.Int32
	lastErrMu sync.Mutex
	lastErr   error

	normalize func(S) S
	logger    zerolog.Logger
}

func New[S any](name string, initial S, adapter Adapter[S], opts ...Option[S]) *Store[S] {
	s := &Store[S]{
		name:    name,
		adapter: adapter,
		initial: initial,
		subs:    make(map[int]func(Change[S])),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.apply(initial)
	return s
}

func (s *Store[S]) apply(state S) S {
	if s.normalize != nil {
		return s.normalize(state)
	}
	return state
}

// Hydrate reads the persisted snapshot once. A missing snapshot leaves the
// initial state in place; a failing read falls back to the initial state and
// returns a *PersistenceError so the caller can log it without blocking.
func (s *Store[S]) Hydrate(ctx context.Context) error {
	s.pending.Add(1)
	defer s.pending.Add(-1)

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.adapter.Load(ctx)
	if err != nil {
		s.state = s.apply(s.initial)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		perr := &PersistenceError{Store: s.name, Op: "load", Err: err}
		s.setLastErr(perr)
		s.logger.Warn().Err(err).Str("store", s.name).Msg("rehydrate failed, starting empty")
		return perr
	}
	s.state = s.apply(loaded)
	return nil
}

// Get returns the current state. Callers must treat it as read-only.
func (s *Store[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to the latest state. If fn fails the state is unchanged
// and its error is returned. A persistence failure after a successful fn is
// not returned; it is recorded, logged and passed to subscribers.
func (s *Store[S]) Update(ctx context.Context, fn func(S) (S, error)) (S, error) {
	s.pending.Add(1)
	defer s.pending.Add(-1)

	s.mu.Lock()
	next, err := fn(s.state)
	if err != nil {
		current := s.state
		s.mu.Unlock()
		if errors.Is(err, ErrNoChange) {
			return current, nil
		}
		return current, err
	}

	next = s.apply(next)
	s.state = next

	var perr error
	if saveErr := s.adapter.Save(ctx, next); saveErr != nil {
		perr = &PersistenceError{Store: s.name, Op: "save", Err: saveErr}
		s.logger.Warn().Err(saveErr).Str("store", s.name).Msg("persist snapshot failed, keeping in-memory state")
	}
	s.setLastErr(perr)

	s.notifyMu.Lock()
	s.mu.Unlock()
	s.notify(Change[S]{State: next, Err: perr})
	s.notifyMu.Unlock()

	return next, nil
}

// Subscribe registers fn for change notifications. Subscribers must not call
// Update synchronously.
func (s *Store[S]) Subscribe(fn func(Change[S])) (cancel func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store[S]) notify(c Change[S]) {
	s.subsMu.Lock()
	fns := make([]func(Change[S]), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Loading reports whether a mutation or rehydration is in flight.
func (s *Store[S]) Loading() bool {
	return s.pending.Load() > 0
}

// LastPersistError returns the error of the most recent persistence attempt,
// or nil if it succeeded.
func (s *Store[S]) LastPersistError() error {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	return s.lastErr
}

func (s *Store[S]) setLastErr(err error) {
	s.lastErrMu.Lock()
	s.lastErr = err
	s.lastErrMu.Unlock()
}

// Close drops all subscribers. The state stays readable.
func (s *Store[S]) Close() {
	s.subsMu.Lock()
	s.subs = make(map[int]func(Change[S]))
	s.subsMu.Unlock()
}
