package copytrade

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ton-trading-bot/internal/database"
)

type fakeStore struct {
	mu      sync.Mutex
	traders map[int64]database.CopyTrader
}

func newFakeStore() *fakeStore {
	return &fakeStore{traders: make(map[int64]database.CopyTrader)}
}

func (f *fakeStore) GetCopyTrader(_ context.Context, userID int64) (*database.CopyTrader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.traders[userID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeStore) GetCopyTraderByWallet(_ context.Context, walletAddress string) (*database.CopyTrader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.traders {
		if t.WalletAddress == walletAddress {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveCopyTrader(_ context.Context, t database.CopyTrader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.traders[t.UserID] = t
	return nil
}

func (f *fakeStore) ListCopyTraders(_ context.Context, limit int) ([]database.CopyTrader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]database.CopyTrader, 0, len(f.traders))
	for _, t := range f.traders {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SuccessRate > out[j].SuccessRate })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateTraderStats(_ context.Context, userID, totalTrades int64, successRate float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.traders[userID]
	if !ok {
		return false, nil
	}
	t.TotalTrades = totalTrades
	t.SuccessRate = successRate
	f.traders[userID] = t
	return true, nil
}

func settled(status database.OrderStatus) database.Order {
	return database.Order{ID: "order", Status: status}
}

func TestRecordSettlementWeightedAverage(t *testing.T) {
	ctx := context.Background()

	t.Run("completed raises the rate", func(t *testing.T) {
		store := newFakeStore()
		store.traders[1] = database.CopyTrader{UserID: 1, TotalTrades: 3, SuccessRate: 50}
		agg := NewAggregator(store)

		require.NoError(t, agg.RecordSettlement(ctx, 1, settled(database.StatusCompleted)))

		got := store.traders[1]
		require.EqualValues(t, 4, got.TotalTrades)
		require.InDelta(t, 62.5, got.SuccessRate, 1e-9)
	})

	t.Run("failed lowers the rate", func(t *testing.T) {
		store := newFakeStore()
		store.traders[1] = database.CopyTrader{UserID: 1, TotalTrades: 3, SuccessRate: 50}
		agg := NewAggregator(store)

		require.NoError(t, agg.RecordSettlement(ctx, 1, settled(database.StatusFailed)))

		got := store.traders[1]
		require.EqualValues(t, 4, got.TotalTrades)
		require.InDelta(t, 37.5, got.SuccessRate, 1e-9)
	})

	t.Run("first trade starts from zero count", func(t *testing.T) {
		store := newFakeStore()
		store.traders[1] = database.CopyTrader{UserID: 1}
		agg := NewAggregator(store)

		require.NoError(t, agg.RecordSettlement(ctx, 1, settled(database.StatusCompleted)))

		got := store.traders[1]
		require.EqualValues(t, 1, got.TotalTrades)
		require.InDelta(t, 100, got.SuccessRate, 1e-9)
	})
}

func TestRecordSettlementUnregisteredNoop(t *testing.T) {
	store := newFakeStore()
	agg := NewAggregator(store)

	require.NoError(t, agg.RecordSettlement(context.Background(), 99, settled(database.StatusCompleted)))
	require.Empty(t, store.traders)
}

func TestRegisterKeepsStats(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	agg := NewAggregator(store)

	require.NoError(t, agg.Register(ctx, 1, "EQOld"))
	store.traders[1] = database.CopyTrader{UserID: 1, WalletAddress: "EQOld", TotalTrades: 8, SuccessRate: 75}

	require.NoError(t, agg.Register(ctx, 1, "EQNew"))

	got := store.traders[1]
	require.Equal(t, "EQNew", got.WalletAddress)
	require.EqualValues(t, 8, got.TotalTrades)
	require.InDelta(t, 75, got.SuccessRate, 1e-9)
}

func TestFollow(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.traders[1] = database.CopyTrader{UserID: 1, WalletAddress: "EQTrader", Followers: 2}
	agg := NewAggregator(store)

	trader, err := agg.Follow(ctx, "EQTrader")
	require.NoError(t, err)
	require.EqualValues(t, 3, trader.Followers)
	require.EqualValues(t, 3, store.traders[1].Followers)

	_, err = agg.Follow(ctx, "EQNobody")
	require.ErrorIs(t, err, ErrTraderNotFound)
}

func TestLeaderboardDefaultLimit(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	for i := int64(0); i < 15; i++ {
		store.traders[i] = database.CopyTrader{UserID: i, SuccessRate: float64(i)}
	}
	agg := NewAggregator(store)

	top, err := agg.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 10)

	top, err = agg.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.GreaterOrEqual(t, top[0].SuccessRate, top[1].SuccessRate)
}

func TestConcurrentSettlementsKeepExactAverage(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.traders[1] = database.CopyTrader{UserID: 1}
	agg := NewAggregator(store)

	const completed = 30
	const failed = 10

	var wg sync.WaitGroup
	for i := 0; i < completed+failed; i++ {
		status := database.StatusCompleted
		if i < failed {
			status = database.StatusFailed
		}
		wg.Add(1)
		go func(status database.OrderStatus) {
			defer wg.Done()
			assert.NoError(t, agg.RecordSettlement(ctx, 1, settled(status)))
		}(status)
	}
	wg.Wait()

	got := store.traders[1]
	require.EqualValues(t, completed+failed, got.TotalTrades)
	require.InDelta(t, 100*float64(completed)/float64(completed+failed), got.SuccessRate, 1e-6)
}
