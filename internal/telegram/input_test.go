package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ton-trading-bot/internal/copytrade"
	"github.com/ton-trading-bot/internal/database"
	"github.com/ton-trading-bot/internal/stonfi"
	tonclient "github.com/ton-trading-bot/internal/ton"
)

// STON.fi v1 router, a known-valid friendly address.
const testTraderWallet = "EQB3ncyBUTjZUA5EnFKR5_EnOMI9V1tTEAAPaiU71gc4TiUt"

const testToken = "EQA2kCVNwVsil2EM2mB0SkXytxCqQjS4mttjDpnXmwG9T6bO"

type fakeStore struct {
	users map[int64]*database.User
	saved []database.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*database.User)}
}

func (s *fakeStore) GetUser(_ context.Context, userID int64) (*database.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (s *fakeStore) SaveUser(_ context.Context, u database.User) error {
	copied := u
	s.users[u.UserID] = &copied
	s.saved = append(s.saved, u)
	return nil
}

type fakeWallets struct{}

func (fakeWallets) CreateWallet() (*tonclient.NewWallet, error) {
	return &tonclient.NewWallet{Address: testTraderWallet, Mnemonic: []string{"abandon", "ability"}}, nil
}

func (fakeWallets) GetBalance(context.Context, string) (float64, error) { return 42, nil }

type fakeVenue struct {
	assets []stonfi.Asset
	err    error
}

func (v *fakeVenue) SearchAssets(context.Context, string, string) ([]stonfi.Asset, error) {
	return v.assets, v.err
}

func (v *fakeVenue) GetWalletAssets(context.Context, string) ([]stonfi.Asset, error) {
	return v.assets, v.err
}

type fakeTrading struct {
	order    *database.Order
	err      error
	lastSide database.OrderSide
	lastPair database.Pair
	lastAmt  float64
	calls    int
}

func (t *fakeTrading) ExecuteTrade(_ context.Context, userID int64, side database.OrderSide, pair database.Pair, amount, slippage float64) (*database.Order, error) {
	t.calls++
	t.lastSide = side
	t.lastPair = pair
	t.lastAmt = amount
	return t.order, t.err
}

func (t *fakeTrading) CancelOrder(context.Context, int64, string) error { return nil }

func (t *fakeTrading) OrderHistory(context.Context, int64) ([]database.Order, error) {
	return nil, nil
}

type fakeCopy struct {
	trader *database.CopyTrader
	err    error
}

func (c *fakeCopy) Register(context.Context, int64, string) error { return nil }

func (c *fakeCopy) Follow(context.Context, string) (*database.CopyTrader, error) {
	return c.trader, c.err
}

func (c *fakeCopy) Leaderboard(context.Context, int) ([]database.CopyTrader, error) {
	return nil, nil
}

func newTestBot(store *fakeStore, venue *fakeVenue, trade *fakeTrading, cp *fakeCopy) *Bot {
	return New(Options{
		Store:       store,
		Wallets:     fakeWallets{},
		Venue:       venue,
		Trading:     trade,
		CopyTrading: cp,
	})
}

func userWaiting(kind database.InputKind, token string) *database.User {
	return &database.User{
		UserID: 7,
		Wallet: &database.Wallet{Address: testTraderWallet},
		Settings: database.Settings{
			MaxAmount:  10,
			Slippage:   1,
			InputState: database.InputState{Kind: kind, Token: token},
		},
	}
}

func TestConsumeSlippageRejectsOutOfRange(t *testing.T) {
	store := newFakeStore()
	bot := newTestBot(store, &fakeVenue{}, &fakeTrading{}, &fakeCopy{})
	user := userWaiting(database.InputSlippage, "")

	reply, _, err := bot.consumeInput(context.Background(), user, "150")
	require.NoError(t, err)
	assert.Contains(t, reply, "between 0 and 100")
	// The prompt stays pending and nothing was persisted.
	assert.Equal(t, database.InputSlippage, user.Settings.InputState.Kind)
	assert.Equal(t, 1.0, user.Settings.Slippage)
	assert.Empty(t, store.saved)
}

func TestConsumeSlippageValid(t *testing.T) {
	store := newFakeStore()
	bot := newTestBot(store, &fakeVenue{}, &fakeTrading{}, &fakeCopy{})
	user := userWaiting(database.InputSlippage, "")

	reply, _, err := bot.consumeInput(context.Background(), user, "2.5")
	require.NoError(t, err)
	assert.Contains(t, reply, "2.5")

	require.Len(t, store.saved, 1)
	assert.Equal(t, 2.5, store.saved[0].Settings.Slippage)
	assert.True(t, store.saved[0].Settings.InputState.None())
}

func TestConsumeAmountRejectsNonNumeric(t *testing.T) {
	store := newFakeStore()
	bot := newTestBot(store, &fakeVenue{}, &fakeTrading{}, &fakeCopy{})
	user := userWaiting(database.InputAmount, "")

	reply, _, err := bot.consumeInput(context.Background(), user, "ten")
	require.NoError(t, err)
	assert.Contains(t, reply, "positive number")
	assert.Equal(t, database.InputAmount, user.Settings.InputState.Kind)
	assert.Empty(t, store.saved)
}

func TestConsumeAmountSetsDefault(t *testing.T) {
	store := newFakeStore()
	bot := newTestBot(store, &fakeVenue{}, &fakeTrading{}, &fakeCopy{})
	user := userWaiting(database.InputAmount, "")

	_, _, err := bot.consumeInput(context.Background(), user, "25")
	require.NoError(t, err)
	require.Len(t, store.saved, 1)
	assert.Equal(t, 25.0, store.saved[0].Settings.MaxAmount)
	assert.True(t, store.saved[0].Settings.InputState.None())
}

func TestConsumeAmountWithTokenExecutesBuy(t *testing.T) {
	store := newFakeStore()
	price := 0.5
	trade := &fakeTrading{order: &database.Order{
		ID:     "ord-1",
		Side:   database.SideBuy,
		Amount: 3,
		Price:  &price,
		Status: database.StatusCompleted,
	}}
	venue := &fakeVenue{assets: []stonfi.Asset{{
		ContractAddress: testToken,
		Symbol:          "TKN",
		Decimals:        6,
	}}}
	bot := newTestBot(store, venue, trade, &fakeCopy{})
	user := userWaiting(database.InputAmount, testToken)

	reply, _, err := bot.consumeInput(context.Background(), user, "3")
	require.NoError(t, err)
	assert.Contains(t, reply, "BUY order completed")
	assert.Equal(t, 1, trade.calls)
	assert.Equal(t, database.SideBuy, trade.lastSide)
	assert.Equal(t, 3.0, trade.lastAmt)
	assert.Equal(t, testToken, trade.lastPair.BaseToken)
	assert.Equal(t, tonProxyAddress, trade.lastPair.QuoteToken)
	assert.Equal(t, 6, trade.lastPair.BaseDecimals)
	// State cleared before execution.
	assert.True(t, store.users[7].Settings.InputState.None())
}

func TestConsumeTokenSearchNoMatchKeepsWaiting(t *testing.T) {
	store := newFakeStore()
	bot := newTestBot(store, &fakeVenue{}, &fakeTrading{}, &fakeCopy{})
	user := userWaiting(database.InputTokenBuy, "")

	reply, markup, err := bot.consumeInput(context.Background(), user, "NOPE")
	require.NoError(t, err)
	assert.Contains(t, reply, "No token matched")
	assert.Nil(t, markup)
	assert.Equal(t, database.InputTokenBuy, user.Settings.InputState.Kind)
	assert.Empty(t, store.saved)
}

func TestConsumeTokenSearchOffersAmounts(t *testing.T) {
	store := newFakeStore()
	venue := &fakeVenue{assets: []stonfi.Asset{{
		ContractAddress: testToken,
		Symbol:          "TKN",
		DisplayName:     "Token",
		Decimals:        9,
		DexPriceUSD:     "1.25",
	}}}
	bot := newTestBot(store, venue, &fakeTrading{}, &fakeCopy{})
	user := userWaiting(database.InputTokenBuy, "")

	reply, markup, err := bot.consumeInput(context.Background(), user, "TKN")
	require.NoError(t, err)
	assert.Contains(t, reply, "Token (TKN)")
	assert.Contains(t, reply, "$1.25")
	require.NotNil(t, markup)
	// The custom-amount button carries the full contract address.
	last := markup.InlineKeyboard[len(markup.InlineKeyboard)-1][0]
	require.NotNil(t, last.CallbackData)
	assert.Equal(t, "buy_custom_"+testToken, *last.CallbackData)
	assert.True(t, store.users[7].Settings.InputState.None())
}

func TestConsumeTokenSellMatchesHolding(t *testing.T) {
	store := newFakeStore()
	venue := &fakeVenue{assets: []stonfi.Asset{
		{ContractAddress: "EQOther", Symbol: "OTH", Balance: "0"},
		{ContractAddress: testToken, Symbol: "TKN", Decimals: 6, Balance: "5000000"},
	}}
	bot := newTestBot(store, venue, &fakeTrading{}, &fakeCopy{})
	user := userWaiting(database.InputTokenSell, "")

	reply, markup, err := bot.consumeInput(context.Background(), user, "tkn")
	require.NoError(t, err)
	assert.Contains(t, reply, "Confirm selling")
	require.NotNil(t, markup)
	btn := markup.InlineKeyboard[0][0]
	require.NotNil(t, btn.CallbackData)
	assert.Equal(t, "sell_token_"+testToken, *btn.CallbackData)
	assert.True(t, store.users[7].Settings.InputState.None())
}

func TestConsumeTokenSellNoHoldingKeepsWaiting(t *testing.T) {
	store := newFakeStore()
	venue := &fakeVenue{assets: []stonfi.Asset{
		{ContractAddress: testToken, Symbol: "TKN", Balance: "0"},
	}}
	bot := newTestBot(store, venue, &fakeTrading{}, &fakeCopy{})
	user := userWaiting(database.InputTokenSell, "")

	reply, _, err := bot.consumeInput(context.Background(), user, "TKN")
	require.NoError(t, err)
	assert.Contains(t, reply, "hold no token")
	assert.Equal(t, database.InputTokenSell, user.Settings.InputState.Kind)
	assert.Empty(t, store.saved)
}

func TestConsumeCopyWalletRejectsGarbage(t *testing.T) {
	store := newFakeStore()
	bot := newTestBot(store, &fakeVenue{}, &fakeTrading{}, &fakeCopy{})
	user := userWaiting(database.InputCopyWallet, "")

	reply, _, err := bot.consumeInput(context.Background(), user, "not-an-address")
	require.NoError(t, err)
	assert.Contains(t, reply, "does not look like a TON address")
	assert.Equal(t, database.InputCopyWallet, user.Settings.InputState.Kind)
}

func TestConsumeCopyWalletUnknownTraderKeepsWaiting(t *testing.T) {
	store := newFakeStore()
	bot := newTestBot(store, &fakeVenue{}, &fakeTrading{}, &fakeCopy{err: copytrade.ErrTraderNotFound})
	user := userWaiting(database.InputCopyWallet, "")

	reply, _, err := bot.consumeInput(context.Background(), user, testTraderWallet)
	require.NoError(t, err)
	assert.Contains(t, reply, "not a registered trader")
	assert.Equal(t, database.InputCopyWallet, user.Settings.InputState.Kind)
}

func TestConsumeCopyWalletFollows(t *testing.T) {
	store := newFakeStore()
	cp := &fakeCopy{trader: &database.CopyTrader{
		WalletAddress: testTraderWallet,
		SuccessRate:   62.5,
		Followers:     4,
	}}
	bot := newTestBot(store, &fakeVenue{}, &fakeTrading{}, cp)
	user := userWaiting(database.InputCopyWallet, "")

	reply, _, err := bot.consumeInput(context.Background(), user, testTraderWallet)
	require.NoError(t, err)
	assert.Contains(t, reply, "Now following")
	assert.Contains(t, reply, "62.5%")
	assert.True(t, store.users[7].Settings.InputState.None())
}

func TestConsumeCopyWalletPropagatesStoreErrors(t *testing.T) {
	store := newFakeStore()
	cp := &fakeCopy{err: errors.New("boom")}
	bot := newTestBot(store, &fakeVenue{}, &fakeTrading{}, cp)
	user := userWaiting(database.InputCopyWallet, "")

	_, _, err := bot.consumeInput(context.Background(), user, testTraderWallet)
	require.Error(t, err)
}

func TestConsumeUnknownStateResets(t *testing.T) {
	store := newFakeStore()
	bot := newTestBot(store, &fakeVenue{}, &fakeTrading{}, &fakeCopy{})
	user := userWaiting(database.InputKind("waiting_legacy"), "")

	reply, markup, err := bot.consumeInput(context.Background(), user, "hello")
	require.NoError(t, err)
	assert.Contains(t, reply, "What would you like to do")
	assert.NotNil(t, markup)
	assert.True(t, store.users[7].Settings.InputState.None())
}
