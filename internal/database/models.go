package database

import "time"

// InputKind enumerates the free-text replies the bot may be waiting for.
// Exactly one kind is live per user at a time.
type InputKind string

const (
	InputNone       InputKind = "none"
	InputTokenBuy   InputKind = "waiting_token_buy"
	InputTokenSell  InputKind = "waiting_token_sell"
	InputAmount     InputKind = "waiting_amount"
	InputSlippage   InputKind = "waiting_slippage"
	InputCopyWallet InputKind = "waiting_copy_wallet"
)

// InputState is the persisted pending-input marker. Token is populated only
// for kinds that need to remember which asset the prompt was about.
type InputState struct {
	Kind  InputKind `json:"kind"`
	Token string    `json:"token,omitempty"`
}

// None reports whether no free-text reply is expected.
func (s InputState) None() bool {
	return s.Kind == InputNone || s.Kind == ""
}

// Wallet is the custodial wallet attached to a user profile. The recovery
// phrase is stored as an AES-GCM envelope, never in clear.
type Wallet struct {
	Address           string  `json:"address"`
	EncryptedMnemonic string  `json:"-"`
	Balance           float64 `json:"balance"`
}

// Settings is the per-user trading settings record. It always exists once
// the profile does.
type Settings struct {
	MaxAmount  float64    `json:"max_amount"`
	Slippage   float64    `json:"slippage"`
	AutoTrade  bool       `json:"auto_trade"`
	InputState InputState `json:"input_state"`
}

// User is a chat user profile. The wallet is attached lazily on /start.
type User struct {
	UserID    int64     `json:"user_id"`
	Wallet    *Wallet   `json:"wallet,omitempty"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusFailed    OrderStatus = "FAILED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transition.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Pair identifies the two assets of a trade and their decimal precision.
type Pair struct {
	BaseToken     string `json:"base_token"`
	QuoteToken    string `json:"quote_token"`
	BaseDecimals  int    `json:"base_decimals"`
	QuoteDecimals int    `json:"quote_decimals"`
}

// Order is a trade order. Created PENDING, it transitions exactly once to
// COMPLETED, FAILED or CANCELLED.
type Order struct {
	ID            string      `json:"id"`
	UserID        int64       `json:"user_id"`
	Pair          Pair        `json:"pair"`
	Side          OrderSide   `json:"side"`
	Amount        float64     `json:"amount"`
	Price         *float64    `json:"price,omitempty"`
	Status        OrderStatus `json:"status"`
	WalletAddress string      `json:"wallet_address"`
	Slippage      float64     `json:"slippage"`
	Error         *string     `json:"error,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// CopyTrader is the public success-rate record of a tracked trader.
type CopyTrader struct {
	UserID        int64   `json:"user_id"`
	WalletAddress string  `json:"wallet_address"`
	TotalTrades   int64   `json:"total_trades"`
	SuccessRate   float64 `json:"success_rate"`
	ProfitLoss    float64 `json:"profit_loss"`
	Followers     int64   `json:"followers"`
}
