// Package ledgertest holds the behaviour every ledger.Store adapter must share.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"autonomos/internal/core"
	"autonomos/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Clock hands out strictly increasing instants, one step apart.
type Clock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{next: start, step: step}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// Factory builds an empty store whose entries are stamped by now.
type Factory func(t *testing.T, now func() time.Time) ledger.Store

// RunStoreContract exercises the ledger.Store contract against an adapter.
func RunStoreContract(t *testing.T, newStore Factory) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("resolve is idempotent", func(t *testing.T) {
		s := newStore(t, NewClock(start, time.Second).Now)

		first, err := s.ResolveOrCreateClient(ctx, "5511999990000", "João")
		require.NoError(t, err)
		second, err := s.ResolveOrCreateClient(ctx, "5511999990000", "João")
		require.NoError(t, err)
		assert.Equal(t, first, second)

		other, err := s.ResolveOrCreateClient(ctx, "5511999990000", "joão")
		require.NoError(t, err)
		assert.NotEqual(t, first, other, "names are matched case-sensitively")

		otherTenant, err := s.ResolveOrCreateClient(ctx, "5521888880000", "João")
		require.NoError(t, err)
		assert.NotEqual(t, first, otherTenant, "clients are scoped by tenant")
	})

	t.Run("concurrent resolve yields one client", func(t *testing.T) {
		s := newStore(t, NewClock(start, time.Second).Now)

		const workers = 8
		ids := make([]int64, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ids[i], errs[i] = s.ResolveOrCreateClient(ctx, "5511999990000", "Maria")
			}(i)
		}
		wg.Wait()

		for i := 0; i < workers; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, ids[0], ids[i])
		}
	})

	t.Run("resolve rejects empty input", func(t *testing.T) {
		s := newStore(t, NewClock(start, time.Second).Now)

		_, err := s.ResolveOrCreateClient(ctx, "", "João")
		assert.ErrorIs(t, err, core.ErrEmptyTenant)
		_, err = s.ResolveOrCreateClient(ctx, "5511999990000", "  ")
		assert.ErrorIs(t, err, core.ErrEmptyClient)
	})

	t.Run("append validates entry", func(t *testing.T) {
		s := newStore(t, NewClock(start, time.Second).Now)
		clientID, err := s.ResolveOrCreateClient(ctx, "5511999990000", "João")
		require.NoError(t, err)

		_, err = s.AppendEntry(ctx, clientID, "", 100, core.SourceText)
		assert.ErrorIs(t, err, core.ErrEmptyItem)
		_, err = s.AppendEntry(ctx, clientID, "x", -1, core.SourceText)
		assert.ErrorIs(t, err, core.ErrInvalidAmount)
		_, err = s.AppendEntry(ctx, clientID, "x", 1, core.Source("fax"))
		assert.ErrorIs(t, err, core.ErrInvalidSource)
	})

	t.Run("history is newest first", func(t *testing.T) {
		s := newStore(t, NewClock(start, time.Minute).Now)
		clientID, err := s.ResolveOrCreateClient(ctx, "5511999990000", "João")
		require.NoError(t, err)

		for i, item := range []string{"t1", "t2", "t3"} {
			_, err := s.AppendEntry(ctx, clientID, item, int64(100*(i+1)), core.SourceText)
			require.NoError(t, err)
		}

		rows, err := s.QueryHistory(ctx, "5511999990000", "")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"t3", "t2", "t1"}, items(rows))
		assert.Equal(t, "João", rows[0].Client)
		assert.Equal(t, int64(300), rows[0].AmountCents)
		assert.Equal(t, core.SourceText, rows[0].Source)
		assert.True(t, rows[2].Date.Equal(start), "entry stamped by the store clock, got %s", rows[2].Date)
	})

	t.Run("history ties fall back to insertion order", func(t *testing.T) {
		frozen := func() time.Time { return start }
		s := newStore(t, frozen)
		clientID, err := s.ResolveOrCreateClient(ctx, "5511999990000", "João")
		require.NoError(t, err)
		for _, item := range []string{"a", "b"} {
			_, err := s.AppendEntry(ctx, clientID, item, 1, core.SourceAudio)
			require.NoError(t, err)
		}

		rows, err := s.QueryHistory(ctx, "5511999990000", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, items(rows))
	})

	t.Run("history filter is a case-insensitive substring", func(t *testing.T) {
		s := newStore(t, NewClock(start, time.Second).Now)
		for _, name := range []string{"João", "Jorge", "Maria", "ÂNGELA"} {
			id, err := s.ResolveOrCreateClient(ctx, "5511999990000", name)
			require.NoError(t, err)
			_, err = s.AppendEntry(ctx, id, "serviço "+name, 100, core.SourceText)
			require.NoError(t, err)
		}

		rows, err := s.QueryHistory(ctx, "5511999990000", "Jo")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"João", "Jorge"}, clients(rows))

		rows, err = s.QueryHistory(ctx, "5511999990000", "JOÃ")
		require.NoError(t, err)
		assert.Equal(t, []string{"João"}, clients(rows))

		rows, err = s.QueryHistory(ctx, "5511999990000", "ângela")
		require.NoError(t, err)
		assert.Equal(t, []string{"ÂNGELA"}, clients(rows))

		rows, err = s.QueryHistory(ctx, "5511999990000", "%")
		require.NoError(t, err)
		assert.Empty(t, rows, "LIKE wildcards in the filter are literal")

		rows, err = s.QueryHistory(ctx, "5511999990000", "Zé")
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("history is scoped by tenant", func(t *testing.T) {
		s := newStore(t, NewClock(start, time.Second).Now)
		id, err := s.ResolveOrCreateClient(ctx, "5511999990000", "João")
		require.NoError(t, err)
		_, err = s.AppendEntry(ctx, id, "troca de óleo", 12000, core.SourceText)
		require.NoError(t, err)

		rows, err := s.QueryHistory(ctx, "5521888880000", "")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("history is capped", func(t *testing.T) {
		s := newStore(t, NewClock(start, time.Second).Now)
		id, err := s.ResolveOrCreateClient(ctx, "5511999990000", "João")
		require.NoError(t, err)
		for i := 0; i < ledger.HistoryLimit+5; i++ {
			_, err := s.AppendEntry(ctx, id, fmt.Sprintf("item %d", i), 100, core.SourceText)
			require.NoError(t, err)
		}

		rows, err := s.QueryHistory(ctx, "5511999990000", "")
		require.NoError(t, err)
		require.Len(t, rows, ledger.HistoryLimit)
		assert.Equal(t, fmt.Sprintf("item %d", ledger.HistoryLimit+4), rows[0].Item)
	})
}

func items(rows []core.HistoryRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Item
	}
	return out
}

func clients(rows []core.HistoryRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Client
	}
	return out
}
