package telegram

import (
	"context"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ton-trading-bot/internal/database"
	"github.com/ton-trading-bot/internal/stonfi"
	tonclient "github.com/ton-trading-bot/internal/ton"
)

// Store is the profile slice of the persistence gateway the bot needs.
type Store interface {
	GetUser(ctx context.Context, userID int64) (*database.User, error)
	SaveUser(ctx context.Context, u database.User) error
}

// Wallets provisions custodial wallets and reads balances.
type Wallets interface {
	CreateWallet() (*tonclient.NewWallet, error)
	GetBalance(ctx context.Context, address string) (float64, error)
}

// Trading is the order lifecycle manager surface used by the chat layer.
type Trading interface {
	ExecuteTrade(ctx context.Context, userID int64, side database.OrderSide, pair database.Pair, amount, slippage float64) (*database.Order, error)
	CancelOrder(ctx context.Context, userID int64, orderID string) error
	OrderHistory(ctx context.Context, userID int64) ([]database.Order, error)
}

// Venue exposes the aggregator lookups the chat flows need.
type Venue interface {
	SearchAssets(ctx context.Context, query, walletAddress string) ([]stonfi.Asset, error)
	GetWalletAssets(ctx context.Context, walletAddress string) ([]stonfi.Asset, error)
}

// CopyTrading is the tracked-trader surface used by the chat layer.
type CopyTrading interface {
	Register(ctx context.Context, userID int64, walletAddress string) error
	Follow(ctx context.Context, walletAddress string) (*database.CopyTrader, error)
	Leaderboard(ctx context.Context, limit int) ([]database.CopyTrader, error)
}

// Options wires the bot with its collaborators.
type Options struct {
	API         *tgbotapi.BotAPI
	Store       Store
	Wallets     Wallets
	Trading     Trading
	Venue       Venue
	CopyTrading CopyTrading
	MasterKey   []byte
	Leaderboard int
	Timeout     time.Duration
}

// Bot handles Telegram updates. One update is processed at a time per the
// long-polling loop; cross-update races on shared records are handled
// below the chat layer.
type Bot struct {
	api  *tgbotapi.BotAPI
	opts Options
}

// pTON, the TON proxy token STON.fi routes native-TON swaps through.
const tonProxyAddress = "EQCM3B12QK1e4yZSf8GtBRT0aLMNyEsBc_DhVfRRtOEffLez"

const tonDecimals = 9

func New(opts Options) *Bot {
	if opts.Leaderboard <= 0 {
		opts.Leaderboard = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Bot{api: opts.API, opts: opts}
}

// Start blocks, consuming updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	log.Println("[bot] update loop started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Println("[bot] update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(parent context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(parent, b.opts.Timeout)
	defer cancel()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, chatID, userID)
		case "wallet":
			b.handleWallet(ctx, chatID, userID)
		case "trade":
			b.send(chatID, "Trading menu:", tradeKeyboard())
		case "settings":
			b.send(chatID, "Trading settings:", settingsKeyboard())
		default:
			b.send(chatID, "Unknown command. Try /start, /wallet, /trade or /settings.", nil)
		}
		return
	}

	user, err := b.opts.Store.GetUser(ctx, userID)
	if err != nil {
		log.Printf("[bot] load user %d: %v", userID, err)
		b.send(chatID, "Something went wrong. Please try again.", nil)
		return
	}
	// Free text is only meaningful while a prompt is pending.
	if user == nil || user.Settings.InputState.None() {
		return
	}

	reply, markup, err := b.consumeInput(ctx, user, strings.TrimSpace(msg.Text))
	if err != nil {
		log.Printf("[bot] input for user %d: %v", userID, err)
		b.send(chatID, "Something went wrong. Please try again.", nil)
		return
	}
	b.send(chatID, reply, markup)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil {
		return
	}
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID

	switch data := cb.Data; {
	case data == "buy_token":
		b.promptState(ctx, chatID, userID,
			database.InputState{Kind: database.InputTokenBuy},
			"Enter a token symbol or address to buy (e.g. STON):")
	case data == "sell_token":
		b.handleSellToken(ctx, chatID, userID)
	case data == "settings":
		b.send(chatID, "Trading settings:", settingsKeyboard())
	case data == "set_amount":
		b.promptState(ctx, chatID, userID,
			database.InputState{Kind: database.InputAmount},
			"Enter the default trade amount in TON (e.g. 10):")
	case data == "set_slippage":
		b.promptState(ctx, chatID, userID,
			database.InputState{Kind: database.InputSlippage},
			"Enter the slippage tolerance percentage (0-100):")
	case data == "toggle_auto_trade":
		b.handleToggleAutoTrade(ctx, chatID, userID)
	case data == "wallet":
		b.handleWallet(ctx, chatID, userID)
	case data == "check_balance":
		b.handleCheckBalance(ctx, chatID, userID)
	case data == "deposit_instructions":
		b.handleDepositInstructions(ctx, chatID, userID)
	case data == "export_seed":
		b.handleExportSeed(ctx, chatID, userID)
	case data == "copy_trade":
		b.send(chatID, "Copy trading:", copyTradeKeyboard())
	case data == "register_copy_trader":
		b.handleRegisterCopyTrader(ctx, chatID, userID)
	case data == "top_traders":
		b.handleTopTraders(ctx, chatID)
	case data == "set_copy_wallet":
		b.promptState(ctx, chatID, userID,
			database.InputState{Kind: database.InputCopyWallet},
			"Enter the wallet address of the trader to follow:")
	case data == "view_orders":
		b.handleViewOrders(ctx, chatID, userID)
	case strings.HasPrefix(data, "cancel_order_"):
		b.handleCancelOrder(ctx, chatID, userID, strings.TrimPrefix(data, "cancel_order_"))
	case strings.HasPrefix(data, "sell_token_"):
		b.handleSell(ctx, chatID, userID, strings.TrimPrefix(data, "sell_token_"))
	case strings.HasPrefix(data, "buy_amount_"):
		b.handleBuyAmount(ctx, chatID, userID, strings.TrimPrefix(data, "buy_amount_"))
	case strings.HasPrefix(data, "buy_custom_"):
		b.promptState(ctx, chatID, userID,
			database.InputState{Kind: database.InputAmount, Token: strings.TrimPrefix(data, "buy_custom_")},
			"Enter the amount of TON to spend:")
	default:
		log.Printf("[bot] unknown callback %q from user %d", cb.Data, userID)
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("[bot] answer callback: %v", err)
	}
}

func (b *Bot) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[bot] send to chat %d: %v", chatID, err)
	}
}

// promptState issues a prompt and records which reply we now wait for.
func (b *Bot) promptState(ctx context.Context, chatID, userID int64, state database.InputState, prompt string) {
	user, err := b.opts.Store.GetUser(ctx, userID)
	if err != nil || user == nil {
		log.Printf("[bot] load user %d: %v", userID, err)
		b.send(chatID, "Please run /start first.", nil)
		return
	}
	user.Settings.InputState = state
	if err := b.opts.Store.SaveUser(ctx, *user); err != nil {
		log.Printf("[bot] save user %d: %v", userID, err)
		b.send(chatID, "Something went wrong. Please try again.", nil)
		return
	}
	b.send(chatID, prompt, nil)
}
