package copytrade

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ton-trading-bot/internal/database"
	"github.com/ton-trading-bot/internal/keylock"
)

// ErrTraderNotFound means the wallet is not a registered tracked trader.
var ErrTraderNotFound = errors.New("copytrade: trader not found")

// Store is the slice of the persistence gateway the aggregator needs.
type Store interface {
	GetCopyTrader(ctx context.Context, userID int64) (*database.CopyTrader, error)
	GetCopyTraderByWallet(ctx context.Context, walletAddress string) (*database.CopyTrader, error)
	SaveCopyTrader(ctx context.Context, t database.CopyTrader) error
	ListCopyTraders(ctx context.Context, limit int) ([]database.CopyTrader, error)
	UpdateTraderStats(ctx context.Context, userID, totalTrades int64, successRate float64) (bool, error)
}

// Aggregator maintains the running success rate of tracked traders. Updates
// for the same trader are serialized through a per-trader lock; the store
// itself offers no atomic read-modify-write.
type Aggregator struct {
	store Store
	locks *keylock.KeyedMutex
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{
		store: store,
		locks: keylock.New(),
	}
}

// Register upserts a user as a tracked trader. Re-registering keeps the
// accumulated statistics and only refreshes the wallet address.
func (a *Aggregator) Register(ctx context.Context, userID int64, walletAddress string) error {
	key := traderKey(userID)
	a.locks.Lock(key)
	defer a.locks.Unlock(key)

	existing, err := a.store.GetCopyTrader(ctx, userID)
	if err != nil {
		return fmt.Errorf("load trader: %w", err)
	}
	trader := database.CopyTrader{UserID: userID, WalletAddress: walletAddress}
	if existing != nil {
		trader = *existing
		trader.WalletAddress = walletAddress
	}
	if err := a.store.SaveCopyTrader(ctx, trader); err != nil {
		return fmt.Errorf("save trader: %w", err)
	}
	return nil
}

// RecordSettlement folds a settled order into the trader's running success
// rate. Users who are not tracked traders are a no-op. The rate is a
// weighted average over the total trade count:
//
//	newRate = (rate*total + outcome) / (total+1)
//
// where outcome is 100 for COMPLETED and 0 otherwise.
func (a *Aggregator) RecordSettlement(ctx context.Context, userID int64, order database.Order) error {
	key := traderKey(userID)
	a.locks.Lock(key)
	defer a.locks.Unlock(key)

	trader, err := a.store.GetCopyTrader(ctx, userID)
	if err != nil {
		return fmt.Errorf("load trader: %w", err)
	}
	if trader == nil {
		return nil
	}

	newTotal := trader.TotalTrades + 1
	weighted := trader.SuccessRate * float64(trader.TotalTrades)
	if order.Status == database.StatusCompleted {
		weighted += 100
	}
	newRate := weighted / float64(newTotal)

	if _, err := a.store.UpdateTraderStats(ctx, userID, newTotal, newRate); err != nil {
		return fmt.Errorf("update trader stats: %w", err)
	}
	return nil
}

// Follow records one more follower on the trader owning walletAddress.
func (a *Aggregator) Follow(ctx context.Context, walletAddress string) (*database.CopyTrader, error) {
	trader, err := a.store.GetCopyTraderByWallet(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("load trader: %w", err)
	}
	if trader == nil {
		return nil, ErrTraderNotFound
	}

	key := traderKey(trader.UserID)
	a.locks.Lock(key)
	defer a.locks.Unlock(key)

	// Re-read under the lock before the counter bump.
	trader, err = a.store.GetCopyTrader(ctx, trader.UserID)
	if err != nil {
		return nil, fmt.Errorf("load trader: %w", err)
	}
	if trader == nil {
		return nil, ErrTraderNotFound
	}
	trader.Followers++
	if err := a.store.SaveCopyTrader(ctx, *trader); err != nil {
		return nil, fmt.Errorf("save trader: %w", err)
	}
	return trader, nil
}

// Leaderboard returns the top traders by success rate; limit defaults to 10.
func (a *Aggregator) Leaderboard(ctx context.Context, limit int) ([]database.CopyTrader, error) {
	if limit <= 0 {
		limit = 10
	}
	return a.store.ListCopyTraders(ctx, limit)
}

func traderKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
