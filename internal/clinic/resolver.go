package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/praxiskit/clinic-scheduling/internal/kv"
)

const (
	recentServicesKey = "clinic:recent-services"
	recentServicesMax = 10
)

// ApplyService copies the catalog entry's defaults into the draft
// appointment: duration (re-deriving End), color and legacy type code, and
// the first pre-assigned room when the entry carries one.
func ApplyService(draft *Appointment, entry ServiceCatalogEntry) error {
	if err := draft.Reschedule(draft.Start, entry.DurationMinutes); err != nil {
		return fmt.Errorf("apply service duration: %w", err)
	}
	draft.Service = ServiceRef{ID: entry.ID, Embedded: &entry}
	draft.Color = entry.Color
	draft.LegacyTypeCode = entry.Code
	if len(entry.RoomIDs) > 0 {
		draft.Room = RoomRef{ID: entry.RoomIDs[0]}
	}
	return nil
}

// RecentServices tracks the most recently selected service ids through the
// key-value port, capped and de-duplicated, most recent first.
type RecentServices struct {
	store kv.Store
}

func NewRecentServices(store kv.Store) *RecentServices {
	return &RecentServices{store: store}
}

func (r *RecentServices) List(ctx context.Context) ([]uuid.UUID, error) {
	raw, err := r.store.Get(ctx, recentServicesKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load recent services: %w", err)
	}

	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		// A corrupt entry is dropped rather than surfaced; the list is
		// convenience state only.
		return nil, nil
	}
	return ids, nil
}

// Record moves the id to the front, dropping any earlier occurrence and
// trimming the list to its cap.
func (r *RecentServices) Record(ctx context.Context, id uuid.UUID) error {
	ids, err := r.List(ctx)
	if err != nil {
		return err
	}

	next := make([]uuid.UUID, 0, len(ids)+1)
	next = append(next, id)
	for _, existing := range ids {
		if existing != id {
			next = append(next, existing)
		}
	}
	if len(next) > recentServicesMax {
		next = next[:recentServicesMax]
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode recent services: %w", err)
	}
	if err := r.store.Set(ctx, recentServicesKey, string(raw)); err != nil {
		return fmt.Errorf("store recent services: %w", err)
	}
	return nil
}

// RankServices orders catalog entries for the selection list: favorites
// first, then recently used in recency order, then the rest in the given
// order. Relative order inside the favorites and remainder groups is
// preserved.
func RankServices(entries []ServiceCatalogEntry, recent []uuid.UUID) []ServiceCatalogEntry {
	recentPos := make(map[uuid.UUID]int, len(recent))
	for i, id := range recent {
		recentPos[id] = i
	}

	favorites := make([]ServiceCatalogEntry, 0, len(entries))
	recents := make([]ServiceCatalogEntry, 0, len(recent))
	rest := make([]ServiceCatalogEntry, 0, len(entries))

	for _, e := range entries {
		switch {
		case e.Favorite:
			favorites = append(favorites, e)
		case hasRecent(recentPos, e.ID):
			recents = append(recents, e)
		default:
			rest = append(rest, e)
		}
	}

	sortByRecency(recents, recentPos)

	out := make([]ServiceCatalogEntry, 0, len(entries))
	out = append(out, favorites...)
	out = append(out, recents...)
	out = append(out, rest...)
	return out
}

func hasRecent(pos map[uuid.UUID]int, id uuid.UUID) bool {
	_, ok := pos[id]
	return ok
}

func sortByRecency(entries []ServiceCatalogEntry, pos map[uuid.UUID]int) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && pos[entries[j].ID] < pos[entries[j-1].ID]; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// TokenStore persists the bearer token presented to downstream document
// systems. The token is opaque here; nothing in this service verifies it.
type TokenStore struct {
	store kv.Store
}

func NewTokenStore(store kv.Store) *TokenStore {
	return &TokenStore{store: store}
}

func (t *TokenStore) Save(ctx context.Context, token string) error {
	return t.store.Set(ctx, "clinic:auth-token", token)
}

func (t *TokenStore) Load(ctx context.Context) (string, error) {
	v, err := t.store.Get(ctx, "clinic:auth-token")
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	return v, err
}
