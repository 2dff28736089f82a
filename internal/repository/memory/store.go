// Package memory keeps the booking state in process. It implements the same
// repository contracts as the Postgres layer and is used by the memory
// store driver and by the service tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	events       map[uuid.UUID]model.Event
	bookings     map[uuid.UUID]model.Booking
	waitlist     map[uuid.UUID]model.WaitlistEntry
	transactions map[uuid.UUID]model.Transaction
	seq          int64
}

func (s *state) clone() state {
	return state{
		events:       maps.Clone(s.events),
		bookings:     maps.Clone(s.bookings),
		waitlist:     maps.Clone(s.waitlist),
		transactions: maps.Clone(s.transactions),
		seq:          s.seq,
	}
}

// Store serialises every read and write behind one mutex. A unit of work
// holds the mutex until it commits or rolls back.
type Store struct {
	mu   sync.Mutex
	data state
}

func NewStore() *Store {
	return &Store{
		data: state{
			events:       make(map[uuid.UUID]model.Event),
			bookings:     make(map[uuid.UUID]model.Booking),
			waitlist:     make(map[uuid.UUID]model.WaitlistEntry),
			transactions: make(map[uuid.UUID]model.Transaction),
		},
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	scope := repository.TxScopeFrom(ctx)
	return scope != nil && scope.Owner == s
}

// lock takes the store mutex unless ctx already runs inside this store's
// unit of work.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTx runs fn with the store locked. On error every write made by fn is
// rolled back.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	snapshot := s.data.clone()
	scope := &repository.TxScope{Owner: s}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.data = snapshot
				scope.Aborted()
				s.mu.Unlock()
				panic(r)
			}
		}()
		err = fn(repository.NewTxContext(ctx, scope))
	}()

	if err != nil {
		s.data = snapshot
		scope.Aborted()
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	scope.Committed()
	return nil
}

// Transactor returns the store as a repository.Transactor.
func (s *Store) Transactor() repository.Transactor {
	return s
}
