package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// SaveUser upserts a user profile keyed by user id. The whole row is
// replaced; callers merge fields before saving (last write wins).
func (s *Store) SaveUser(ctx context.Context, u User) error {
	var addr, mnemonic, token any
	var balance float64
	if u.Wallet != nil {
		addr = u.Wallet.Address
		mnemonic = u.Wallet.EncryptedMnemonic
		balance = u.Wallet.Balance
	}
	if u.Settings.InputState.Token != "" {
		token = u.Settings.InputState.Token
	}
	kind := u.Settings.InputState.Kind
	if kind == "" {
		kind = InputNone
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id, wallet_address, wallet_mnemonic_enc, wallet_balance,
		                   max_amount, slippage, auto_trade, input_state, input_token)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (user_id)
		DO UPDATE SET
			wallet_address = EXCLUDED.wallet_address,
			wallet_mnemonic_enc = EXCLUDED.wallet_mnemonic_enc,
			wallet_balance = EXCLUDED.wallet_balance,
			max_amount = EXCLUDED.max_amount,
			slippage = EXCLUDED.slippage,
			auto_trade = EXCLUDED.auto_trade,
			input_state = EXCLUDED.input_state,
			input_token = EXCLUDED.input_token,
			updated_at = NOW()
	`, u.UserID, addr, mnemonic, balance,
		u.Settings.MaxAmount, u.Settings.Slippage, u.Settings.AutoTrade, string(kind), token)
	return err
}

// GetUser fetches a profile, returning (nil, nil) when it does not exist.
func (s *Store) GetUser(ctx context.Context, userID int64) (*User, error) {
	var u User
	var addr, mnemonic, token sql.NullString
	var balance float64
	var kind string
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, wallet_address, wallet_mnemonic_enc, wallet_balance,
		       max_amount, slippage, auto_trade, input_state, input_token,
		       created_at, updated_at
		  FROM users WHERE user_id = $1`, userID).
		Scan(&u.UserID, &addr, &mnemonic, &balance,
			&u.Settings.MaxAmount, &u.Settings.Slippage, &u.Settings.AutoTrade, &kind, &token,
			&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if addr.Valid {
		u.Wallet = &Wallet{
			Address:           addr.String,
			EncryptedMnemonic: mnemonic.String,
			Balance:           balance,
		}
	}
	u.Settings.InputState = InputState{Kind: InputKind(kind)}
	if token.Valid {
		u.Settings.InputState.Token = token.String
	}
	return &u, nil
}

// SaveOrder inserts a new order. This is the creation path only: a
// duplicate identifier is an error, never an overwrite.
func (s *Store) SaveOrder(ctx context.Context, o Order) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trade_orders (id, user_id, base_token, quote_token, base_decimals, quote_decimals,
		                          side, amount, price, status, wallet_address, slippage, error, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, o.ID, o.UserID, o.Pair.BaseToken, o.Pair.QuoteToken, o.Pair.BaseDecimals, o.Pair.QuoteDecimals,
		string(o.Side), o.Amount, optionalFloat(o.Price), string(o.Status), o.WalletAddress,
		o.Slippage, optionalString(o.Error), o.CreatedAt)
	return err
}

// UpdateOrder replaces the mutable fields of an order by identifier. It is
// the status-transition path; the PENDING guard makes it a compare-and-set,
// so an order that already reached a terminal state is never rewritten.
// False means the order does not exist or has already left PENDING.
func (s *Store) UpdateOrder(ctx context.Context, o Order) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE trade_orders SET
			status = $2,
			price = $3,
			error = $4,
			updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`, o.ID, string(o.Status), optionalFloat(o.Price), optionalString(o.Error))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetOrder fetches a single order, returning (nil, nil) on a miss.
func (s *Store) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	row := s.pool.QueryRow(ctx, selectOrder+` WHERE id = $1`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns a user's orders, newest first.
func (s *Store) ListOrders(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := s.pool.Query(ctx, selectOrder+`
		 WHERE user_id = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *o)
	}
	return items, rows.Err()
}

// ListStalePendingOrders returns PENDING orders created before cutoff,
// oldest first. The reconciler fails them.
func (s *Store) ListStalePendingOrders(ctx context.Context, cutoff time.Time) ([]Order, error) {
	rows, err := s.pool.Query(ctx, selectOrder+`
		 WHERE status = 'PENDING' AND created_at < $1
		 ORDER BY created_at ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *o)
	}
	return items, rows.Err()
}

// SaveCopyTrader upserts a tracked-trader record keyed by user id.
func (s *Store) SaveCopyTrader(ctx context.Context, t CopyTrader) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO copy_traders (user_id, wallet_address, total_trades, success_rate, profit_loss, followers)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id)
		DO UPDATE SET
			wallet_address = EXCLUDED.wallet_address,
			total_trades = EXCLUDED.total_trades,
			success_rate = EXCLUDED.success_rate,
			profit_loss = EXCLUDED.profit_loss,
			followers = EXCLUDED.followers,
			updated_at = NOW()
	`, t.UserID, t.WalletAddress, t.TotalTrades, t.SuccessRate, t.ProfitLoss, t.Followers)
	return err
}

// GetCopyTraderByWallet fetches a tracked trader by wallet address,
// returning (nil, nil) on a miss.
func (s *Store) GetCopyTraderByWallet(ctx context.Context, walletAddress string) (*CopyTrader, error) {
	var t CopyTrader
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, wallet_address, total_trades, success_rate, profit_loss, followers
		  FROM copy_traders WHERE wallet_address = $1`, walletAddress).
		Scan(&t.UserID, &t.WalletAddress, &t.TotalTrades, &t.SuccessRate, &t.ProfitLoss, &t.Followers)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetCopyTrader fetches a tracked trader, returning (nil, nil) on a miss.
func (s *Store) GetCopyTrader(ctx context.Context, userID int64) (*CopyTrader, error) {
	var t CopyTrader
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, wallet_address, total_trades, success_rate, profit_loss, followers
		  FROM copy_traders WHERE user_id = $1`, userID).
		Scan(&t.UserID, &t.WalletAddress, &t.TotalTrades, &t.SuccessRate, &t.ProfitLoss, &t.Followers)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListCopyTraders returns the top traders by success rate.
func (s *Store) ListCopyTraders(ctx context.Context, limit int) ([]CopyTrader, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, wallet_address, total_trades, success_rate, profit_loss, followers
		  FROM copy_traders
		 ORDER BY success_rate DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CopyTrader
	for rows.Next() {
		var t CopyTrader
		if err := rows.Scan(&t.UserID, &t.WalletAddress, &t.TotalTrades, &t.SuccessRate, &t.ProfitLoss, &t.Followers); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// UpdateTraderStats applies the aggregator's partial update: only trade
// count and success rate change.
func (s *Store) UpdateTraderStats(ctx context.Context, userID, totalTrades int64, successRate float64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE copy_traders SET
			total_trades = $2,
			success_rate = $3,
			updated_at = NOW()
		WHERE user_id = $1
	`, userID, totalTrades, successRate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const selectOrder = `
		SELECT id, user_id, base_token, quote_token, base_decimals, quote_decimals,
		       side, amount::float8, price::float8, status, wallet_address,
		       slippage::float8, error, created_at, updated_at
		  FROM trade_orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var side, status string
	var price sql.NullFloat64
	var errMsg sql.NullString
	if err := row.Scan(&o.ID, &o.UserID, &o.Pair.BaseToken, &o.Pair.QuoteToken,
		&o.Pair.BaseDecimals, &o.Pair.QuoteDecimals, &side, &o.Amount, &price,
		&status, &o.WalletAddress, &o.Slippage, &errMsg, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Side = OrderSide(side)
	o.Status = OrderStatus(status)
	if price.Valid {
		v := price.Float64
		o.Price = &v
	}
	if errMsg.Valid {
		msg := errMsg.String
		o.Error = &msg
	}
	return &o, nil
}

func optionalString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func optionalFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
