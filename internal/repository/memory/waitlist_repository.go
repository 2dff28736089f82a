package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go-gin-supper-club/internal/model"
	"go-gin-supper-club/internal/repository"
	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/google/uuid"
)

type WaitlistRepository struct {
	store *Store
}

func NewWaitlistRepository(store *Store) repository.WaitlistRepository {
	return &WaitlistRepository{store: store}
}

func fifo(a, b model.WaitlistEntry) int {
	if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Seq, b.Seq)
}

// position must be called with the store locked.
func (r *WaitlistRepository) position(entry model.WaitlistEntry) int {
	if entry.Status != model.WaitlistStatusWaiting {
		return 0
	}
	ahead := 0
	for _, other := range r.store.data.waitlist {
		if other.EventID == entry.EventID && other.Status == model.WaitlistStatusWaiting && fifo(other, entry) < 0 {
			ahead++
		}
	}
	return ahead + 1
}

// filter must be called with the store locked. Results are in FIFO order.
func (r *WaitlistRepository) filter(keep func(model.WaitlistEntry) bool) []model.WaitlistEntry {
	matched := make([]model.WaitlistEntry, 0)
	for _, w := range r.store.data.waitlist {
		if keep(w) {
			matched = append(matched, w)
		}
	}
	slices.SortFunc(matched, fifo)
	return matched
}

func pointers(entries []model.WaitlistEntry) []*model.WaitlistEntry {
	out := make([]*model.WaitlistEntry, len(entries))
	for i := range entries {
		out[i] = &entries[i]
	}
	return out
}

func (r *WaitlistRepository) Create(ctx context.Context, entry *model.WaitlistEntry) (*model.WaitlistEntry, error) {
	defer r.store.lock(ctx)()

	if _, ok := r.store.data.events[entry.EventID]; !ok {
		return nil, apperrors.ErrEventNotFound
	}
	for _, other := range r.store.data.waitlist {
		if other.EventID == entry.EventID && other.Status.IsOpen() &&
			strings.EqualFold(other.Contact.Email, entry.Contact.Email) {
			return nil, apperrors.ErrAlreadyOnWaitlist
		}
	}

	r.store.data.seq++
	created := *entry
	created.Seq = r.store.data.seq
	created.Position = 0
	r.store.data.waitlist[created.ID] = created
	return &created, nil
}

func (r *WaitlistRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error) {
	defer r.store.lock(ctx)()

	w, ok := r.store.data.waitlist[id]
	if !ok {
		return nil, apperrors.ErrWaitlistEntryNotFound
	}
	w.Position = r.position(w)
	return &w, nil
}

func (r *WaitlistRepository) ListByEventID(ctx context.Context, eventID uuid.UUID, statuses ...model.WaitlistStatus) ([]*model.WaitlistEntry, error) {
	defer r.store.lock(ctx)()

	entries := r.filter(func(w model.WaitlistEntry) bool {
		return w.EventID == eventID && (len(statuses) == 0 || slices.Contains(statuses, w.Status))
	})
	for i := range entries {
		entries[i].Position = r.position(entries[i])
	}
	return pointers(entries), nil
}

func (r *WaitlistRepository) ListWaiting(ctx context.Context, eventID uuid.UUID) ([]*model.WaitlistEntry, error) {
	defer r.store.lock(ctx)()

	return pointers(r.filter(func(w model.WaitlistEntry) bool {
		return w.EventID == eventID && w.Status == model.WaitlistStatusWaiting
	})), nil
}

func (r *WaitlistRepository) SumLiveOffers(ctx context.Context, eventID uuid.UUID, now time.Time) (int, error) {
	defer r.store.lock(ctx)()

	total := 0
	for _, w := range r.store.data.waitlist {
		if w.EventID == eventID && w.OfferLive(now) {
			total += w.TicketsWanted
		}
	}
	return total, nil
}

func (r *WaitlistRepository) Transition(ctx context.Context, id uuid.UUID, from model.WaitlistStatus, change model.WaitlistChange) (*model.WaitlistEntry, error) {
	if !from.CanTransitionTo(change.To) {
		return nil, fmt.Errorf("%w: waitlist %s to %s", apperrors.ErrInvalidTransition, from, change.To)
	}

	defer r.store.lock(ctx)()

	w, ok := r.store.data.waitlist[id]
	if !ok {
		return nil, apperrors.ErrWaitlistEntryNotFound
	}
	if w.Status != from {
		return nil, fmt.Errorf("%w: waitlist entry is %s, expected %s", apperrors.ErrInvalidTransition, w.Status, from)
	}
	w.ApplyChange(change)
	r.store.data.waitlist[id] = w
	return &w, nil
}

func (r *WaitlistRepository) ExpireDue(ctx context.Context, eventID *uuid.UUID, now time.Time) ([]*model.WaitlistEntry, error) {
	defer r.store.lock(ctx)()

	due := r.filter(func(w model.WaitlistEntry) bool {
		if eventID != nil && w.EventID != *eventID {
			return false
		}
		return w.Status == model.WaitlistStatusOffered && w.OfferExpiresAt != nil && !now.Before(*w.OfferExpiresAt)
	})
	for i := range due {
		due[i].ApplyChange(model.WaitlistChange{To: model.WaitlistStatusExpired, At: now})
		r.store.data.waitlist[due[i].ID] = due[i]
	}
	return pointers(due), nil
}

func (r *WaitlistRepository) EventsWithWaiting(ctx context.Context) ([]uuid.UUID, error) {
	defer r.store.lock(ctx)()

	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0)
	for _, w := range r.filter(func(w model.WaitlistEntry) bool { return w.Status == model.WaitlistStatusWaiting }) {
		if seen[w.EventID] {
			continue
		}
		seen[w.EventID] = true
		if e, ok := r.store.data.events[w.EventID]; ok && e.IsOpen() {
			ids = append(ids, w.EventID)
		}
	}
	return ids, nil
}

func (r *WaitlistRepository) WithdrawOpen(ctx context.Context, eventID uuid.UUID, at time.Time) ([]*model.WaitlistEntry, error) {
	defer r.store.lock(ctx)()

	open := r.filter(func(w model.WaitlistEntry) bool {
		return w.EventID == eventID && w.Status.IsOpen()
	})
	for i := range open {
		open[i].ApplyChange(model.WaitlistChange{To: model.WaitlistStatusWithdrawn, At: at})
		r.store.data.waitlist[open[i].ID] = open[i]
	}
	return pointers(open), nil
}
