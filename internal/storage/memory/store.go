// Package memory keeps the ledger in process memory. It backs tests and
// DATA_BACKEND=memory; nothing survives a restart.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"autonomos/internal/core"
	"autonomos/internal/ledger"
)

// ErrUnknownClient is returned when an entry references a client id that was never created.
var ErrUnknownClient = errors.New("unknown client")

type clientKey struct {
	tenant string
	name   string
}

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	clientID map[clientKey]int64
	clients  map[int64]core.Client
	entries  []core.Entry
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock returns a store that stamps entries with now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:      now,
		clientID: make(map[clientKey]int64),
		clients:  make(map[int64]core.Client),
	}
}

// ResolveOrCreateClient implements ledger.ClientResolver.
func (s *Store) ResolveOrCreateClient(_ context.Context, tenant, name string) (int64, error) {
	if tenant == "" {
		return 0, core.ErrEmptyTenant
	}
	if strings.TrimSpace(name) == "" {
		return 0, core.ErrEmptyClient
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := clientKey{tenant: tenant, name: name}
	if id, ok := s.clientID[key]; ok {
		return id, nil
	}
	id := int64(len(s.clients) + 1)
	s.clientID[key] = id
	s.clients[id] = core.Client{ID: id, Name: name, OwnerPhone: tenant}
	return id, nil
}

// AppendEntry implements ledger.EntryWriter.
func (s *Store) AppendEntry(_ context.Context, clientID int64, item string, amountCents int64, source core.Source) (int64, error) {
	if strings.TrimSpace(item) == "" {
		return 0, core.ErrEmptyItem
	}
	if amountCents < 0 {
		return 0, core.ErrInvalidAmount
	}
	if !source.IsValid() {
		return 0, core.ErrInvalidSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[clientID]; !ok {
		return 0, ErrUnknownClient
	}
	id := int64(len(s.entries) + 1)
	// Millisecond precision, as persisted by the SQL adapters.
	date := s.now().UTC().Truncate(time.Millisecond)
	s.entries = append(s.entries, core.Entry{
		ID:          id,
		ClientID:    clientID,
		Item:        item,
		AmountCents: amountCents,
		Date:        date,
		Source:      source,
	})
	return id, nil
}

// QueryHistory implements ledger.HistoryReader.
func (s *Store) QueryHistory(_ context.Context, tenant, filter string) ([]core.HistoryRow, error) {
	filter = strings.ToLower(strings.TrimSpace(filter))

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]core.HistoryRow, 0)
	for _, e := range s.entries {
		c := s.clients[e.ClientID]
		if c.OwnerPhone != tenant {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(c.Name), filter) {
			continue
		}
		rows = append(rows, core.HistoryRow{
			EntryID:     e.ID,
			Client:      c.Name,
			Item:        e.Item,
			AmountCents: e.AmountCents,
			Date:        e.Date,
			Source:      e.Source,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		return rows[i].EntryID > rows[j].EntryID
	})
	if len(rows) > ledger.HistoryLimit {
		rows = rows[:ledger.HistoryLimit]
	}
	return rows, nil
}

// Clients returns a snapshot of every stored client.
func (s *Store) Clients() []core.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Client, 0, len(s.clients))
	for id := int64(1); id <= int64(len(s.clients)); id++ {
		out = append(out, s.clients[id])
	}
	return out
}

// Entries returns a snapshot of every stored entry.
func (s *Store) Entries() []core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Entry(nil), s.entries...)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

var _ ledger.Store = (*Store)(nil)
