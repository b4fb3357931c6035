package trading

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ton-trading-bot/internal/database"
	"github.com/ton-trading-bot/internal/keylock"
	"github.com/ton-trading-bot/internal/stonfi"
)

// Store is the slice of the persistence gateway the lifecycle manager needs.
type Store interface {
	GetUser(ctx context.Context, userID int64) (*database.User, error)
	SaveOrder(ctx context.Context, o database.Order) error
	UpdateOrder(ctx context.Context, o database.Order) (bool, error)
	GetOrder(ctx context.Context, orderID string) (*database.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]database.Order, error)
	ListStalePendingOrders(ctx context.Context, cutoff time.Time) ([]database.Order, error)
}

// Venue is the external trading venue: price lookup and swap dry-runs.
// Nothing here submits a signed transaction.
type Venue interface {
	GetAsset(ctx context.Context, assetAddress string) (*stonfi.Asset, error)
	SimulateSwap(ctx context.Context, params stonfi.SwapParams) (*stonfi.SwapSimulation, error)
}

// Settlements receives every order that reaches COMPLETED or FAILED.
type Settlements interface {
	RecordSettlement(ctx context.Context, userID int64, order database.Order) error
}

// Service drives the order state machine:
// PENDING -> {COMPLETED, FAILED, CANCELLED}, each order transitioning
// exactly once. Every transition is persisted before control returns.
type Service struct {
	store  Store
	venue  Venue
	settle Settlements
	locks  *keylock.KeyedMutex
}

func NewService(store Store, venue Venue, settle Settlements) *Service {
	return &Service{
		store:  store,
		venue:  venue,
		settle: settle,
		locks:  keylock.New(),
	}
}

// ExecuteTrade creates a PENDING order, persists it, then runs the trade
// against the venue. The PENDING record is written before execution starts,
// so a crash mid-trade leaves a durable order for the reconciler to expire.
func (s *Service) ExecuteTrade(ctx context.Context, userID int64, side database.OrderSide, pair database.Pair, amount, slippage float64) (*database.Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if slippage < 0 || slippage > 100 {
		return nil, fmt.Errorf("%w: slippage must be within 0-100", ErrValidation)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil || user.Wallet == nil {
		return nil, ErrNoWallet
	}

	order := database.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		Pair:          pair,
		Side:          side,
		Amount:        amount,
		Status:        database.StatusPending,
		WalletAddress: user.Wallet.Address,
		Slippage:      slippage,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	sim, execErr := s.venue.SimulateSwap(ctx, stonfi.SwapParams{
		FromAsset:     fromAsset(order),
		ToAsset:       toAsset(order),
		Units:         toUnits(amount, fromDecimals(order)),
		WalletAddress: user.Wallet.Address,
		Slippage:      slippage,
	})
	if execErr != nil {
		msg := execErr.Error()
		order.Status = database.StatusFailed
		order.Error = &msg
		stored, err := s.finishOrder(ctx, order)
		if err != nil {
			return nil, err
		}
		return stored, fmt.Errorf("execute trade: %w", execErr)
	}

	order.Status = database.StatusCompleted
	if price, ok := realizedPrice(order, sim.ExpectedUnits); ok {
		order.Price = &price
	}
	return s.finishOrder(ctx, order)
}

// finishOrder persists the terminal state of an executed order. The per-order
// lock plus a re-read makes the PENDING exit exactly-once: a cancel or
// reconciler expiry that landed while the venue call was in flight wins, and
// the stale execution result neither overwrites it nor settles again.
func (s *Service) finishOrder(ctx context.Context, order database.Order) (*database.Order, error) {
	s.locks.Lock(order.ID)
	defer s.locks.Unlock(order.ID)

	current, err := s.store.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", order.ID, err)
	}
	if current == nil {
		return nil, ErrOrderNotFound
	}
	if current.Status != database.StatusPending {
		return current, nil
	}
	if _, err := s.store.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("persist %s order %s: %w", order.Status, order.ID, err)
	}
	s.notifySettlement(ctx, order)
	return &order, nil
}

// CancelOrder moves a PENDING order to CANCELLED. The per-order lock makes
// the read-check-write atomic against a concurrent duplicate tap or a
// reconciler sweep.
func (s *Service) CancelOrder(ctx context.Context, userID int64, orderID string) error {
	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return ErrOrderNotFound
	}
	if order.Status != database.StatusPending {
		return ErrNotPending
	}

	order.Status = database.StatusCancelled
	if _, err := s.store.UpdateOrder(ctx, *order); err != nil {
		return fmt.Errorf("persist cancelled order: %w", err)
	}
	return nil
}

// OrderHistory lists a user's orders, newest first.
func (s *Service) OrderHistory(ctx context.Context, userID int64) ([]database.Order, error) {
	return s.store.ListOrders(ctx, userID)
}

// TokenPrice returns the venue's USD price for an asset.
func (s *Service) TokenPrice(ctx context.Context, assetAddress string) (float64, error) {
	asset, err := s.venue.GetAsset(ctx, assetAddress)
	if err != nil {
		return 0, fmt.Errorf("asset lookup: %w", err)
	}
	price, err := strconv.ParseFloat(asset.DexPriceUSD, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", asset.DexPriceUSD, err)
	}
	return price, nil
}

// ExpireStaleOrders fails every PENDING order created before cutoff. Each
// expired order is settled as FAILED. Returns how many were expired.
func (s *Service) ExpireStaleOrders(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.store.ListStalePendingOrders(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale orders: %w", err)
	}

	var expired int
	var errs []error
	for _, order := range stale {
		if err := s.expireOrder(ctx, order.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		expired++
	}
	return expired, errors.Join(errs...)
}

func (s *Service) expireOrder(ctx context.Context, orderID string) error {
	s.locks.Lock(orderID)
	defer s.locks.Unlock(orderID)

	// Re-read under the lock: the order may have settled or been cancelled
	// since the listing.
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil || order.Status != database.StatusPending {
		return nil
	}

	msg := "expired before execution"
	order.Status = database.StatusFailed
	order.Error = &msg
	if _, err := s.store.UpdateOrder(ctx, *order); err != nil {
		return fmt.Errorf("expire order %s: %w", orderID, err)
	}
	s.notifySettlement(ctx, *order)
	return nil
}

func (s *Service) notifySettlement(ctx context.Context, order database.Order) {
	if s.settle == nil {
		return
	}
	// Settlement bookkeeping must not mask the trade outcome.
	_ = s.settle.RecordSettlement(ctx, order.UserID, order)
}

// A BUY spends the quote asset for the base asset; a SELL is the reverse.
func fromAsset(o database.Order) string {
	if o.Side == database.SideBuy {
		return o.Pair.QuoteToken
	}
	return o.Pair.BaseToken
}

func toAsset(o database.Order) string {
	if o.Side == database.SideBuy {
		return o.Pair.BaseToken
	}
	return o.Pair.QuoteToken
}

func fromDecimals(o database.Order) int {
	if o.Side == database.SideBuy {
		return o.Pair.QuoteDecimals
	}
	return o.Pair.BaseDecimals
}

func toDecimals(o database.Order) int {
	if o.Side == database.SideBuy {
		return o.Pair.BaseDecimals
	}
	return o.Pair.QuoteDecimals
}

// toUnits converts a decimal amount to the asset's smallest units.
func toUnits(amount float64, decimals int) string {
	scale := new(big.Float).SetInt(pow10(decimals))
	units := new(big.Float).Mul(big.NewFloat(amount), scale)
	out, _ := units.Int(nil)
	return out.String()
}

// realizedPrice derives the quote-per-base rate from the simulated output.
// For a BUY the order amount is quote spent and the output is base bought;
// for a SELL it is the other way around.
func realizedPrice(o database.Order, expectedUnits string) (float64, bool) {
	n := new(big.Int)
	if _, ok := n.SetString(expectedUnits, 10); !ok {
		return 0, false
	}
	out := new(big.Float).SetInt(n)
	out.Quo(out, new(big.Float).SetInt(pow10(toDecimals(o))))
	received, _ := out.Float64()
	if o.Side == database.SideBuy {
		if received == 0 {
			return 0, false
		}
		return o.Amount / received, true
	}
	if o.Amount == 0 {
		return 0, false
	}
	return received / o.Amount, true
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
