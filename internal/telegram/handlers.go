package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ton-trading-bot/internal/crypto"
	"github.com/ton-trading-bot/internal/database"
	"github.com/ton-trading-bot/internal/trading"
)

func (b *Bot) handleStart(ctx context.Context, chatID, userID int64) {
	user, err := b.opts.Store.GetUser(ctx, userID)
	if err != nil {
		log.Printf("[bot] load user %d: %v", userID, err)
		b.send(chatID, "Something went wrong. Please try again.", nil)
		return
	}

	if user == nil {
		now := time.Now().UTC()
		user = &database.User{
			UserID: userID,
			Settings: database.Settings{
				MaxAmount:  10,
				Slippage:   1,
				InputState: database.InputState{Kind: database.InputNone},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if user.Wallet == nil {
		nw, err := b.opts.Wallets.CreateWallet()
		if err != nil {
			log.Printf("[bot] create wallet for user %d: %v", userID, err)
			b.send(chatID, "Could not create your wallet. Please try again.", nil)
			return
		}
		sealed, err := crypto.EncryptPhrase(b.opts.MasterKey, strings.Join(nw.Mnemonic, " "))
		if err != nil {
			log.Printf("[bot] encrypt phrase for user %d: %v", userID, err)
			b.send(chatID, "Could not create your wallet. Please try again.", nil)
			return
		}
		user.Wallet = &database.Wallet{Address: nw.Address, EncryptedMnemonic: sealed}
		if err := b.opts.Store.SaveUser(ctx, *user); err != nil {
			log.Printf("[bot] save user %d: %v", userID, err)
			b.send(chatID, "Could not create your wallet. Please try again.", nil)
			return
		}
		b.send(chatID, fmt.Sprintf(
			"Your new TON wallet is ready.\n\nAddress:\n%s\n\nRecovery phrase (save it now, it is shown only once):\n%s",
			nw.Address, strings.Join(nw.Mnemonic, " ")), nil)
	}

	b.send(chatID, "Welcome to the TON trading bot. What would you like to do?", mainKeyboard())
}

func (b *Bot) handleWallet(ctx context.Context, chatID, userID int64) {
	user, ok := b.requireWallet(ctx, chatID, userID)
	if !ok {
		return
	}
	b.send(chatID, fmt.Sprintf("Wallet address:\n%s", user.Wallet.Address), walletKeyboard())
}

func (b *Bot) handleCheckBalance(ctx context.Context, chatID, userID int64) {
	user, ok := b.requireWallet(ctx, chatID, userID)
	if !ok {
		return
	}
	balance, err := b.opts.Wallets.GetBalance(ctx, user.Wallet.Address)
	if err != nil {
		log.Printf("[bot] balance for %s: %v", user.Wallet.Address, err)
		b.send(chatID, "Could not fetch the balance right now. Please try again.", nil)
		return
	}
	user.Wallet.Balance = balance
	if err := b.opts.Store.SaveUser(ctx, *user); err != nil {
		log.Printf("[bot] save user %d: %v", userID, err)
	}
	b.send(chatID, fmt.Sprintf("Balance: %s TON", formatAmount(balance)), walletKeyboard())
}

func (b *Bot) handleDepositInstructions(ctx context.Context, chatID, userID int64) {
	user, ok := b.requireWallet(ctx, chatID, userID)
	if !ok {
		return
	}
	b.send(chatID, fmt.Sprintf(
		"Send TON to this address to fund your trading wallet:\n\n%s\n\nDeposits are usually visible within a minute.",
		user.Wallet.Address), nil)
}

func (b *Bot) handleExportSeed(ctx context.Context, chatID, userID int64) {
	user, ok := b.requireWallet(ctx, chatID, userID)
	if !ok {
		return
	}
	phrase, err := crypto.DecryptPhrase(b.opts.MasterKey, user.Wallet.EncryptedMnemonic)
	if err != nil {
		log.Printf("[bot] decrypt phrase for user %d: %v", userID, err)
		b.send(chatID, "Could not export the recovery phrase.", nil)
		return
	}
	b.send(chatID, fmt.Sprintf(
		"Recovery phrase:\n\n%s\n\nAnyone with this phrase controls your funds. Delete this message after saving it.",
		phrase), nil)
}

func (b *Bot) handleSellToken(ctx context.Context, chatID, userID int64) {
	user, ok := b.requireWallet(ctx, chatID, userID)
	if !ok {
		return
	}
	assets, err := b.opts.Venue.GetWalletAssets(ctx, user.Wallet.Address)
	if err != nil {
		log.Printf("[bot] wallet assets for %s: %v", user.Wallet.Address, err)
		b.send(chatID, "Could not load your token balances. Please try again.", nil)
		return
	}
	var held []tokenButton
	for _, a := range assets {
		if a.Balance == "" || a.Balance == "0" || a.ContractAddress == tonProxyAddress {
			continue
		}
		held = append(held, tokenButton{label: assetLabel(a), data: "sell_token_" + a.ContractAddress})
	}
	if len(held) == 0 {
		b.send(chatID, "You have no tokens to sell yet. Buy one first.", tradeKeyboard())
		return
	}
	user.Settings.InputState = database.InputState{Kind: database.InputTokenSell}
	if err := b.opts.Store.SaveUser(ctx, *user); err != nil {
		log.Printf("[bot] save user %d: %v", userID, err)
	}
	b.send(chatID, "Select a token to sell, or type its symbol:", tokenListKeyboard(held))
}

// handleSell sells the user's full balance of the given token back to TON.
func (b *Bot) handleSell(ctx context.Context, chatID, userID int64, tokenAddress string) {
	user, ok := b.requireWallet(ctx, chatID, userID)
	if !ok {
		return
	}
	// Picking a button resolves the sell prompt too.
	if !user.Settings.InputState.None() {
		if err := b.clearInput(ctx, user); err != nil {
			log.Printf("[bot] save user %d: %v", userID, err)
		}
	}
	assets, err := b.opts.Venue.GetWalletAssets(ctx, user.Wallet.Address)
	if err != nil {
		log.Printf("[bot] wallet assets for %s: %v", user.Wallet.Address, err)
		b.send(chatID, "Could not load your token balance. Please try again.", nil)
		return
	}
	var amount float64
	var decimals int
	found := false
	for _, a := range assets {
		if a.ContractAddress != tokenAddress {
			continue
		}
		decimals = a.Decimals
		amount, err = unitsToAmount(a.Balance, a.Decimals)
		if err != nil {
			log.Printf("[bot] parse balance %q: %v", a.Balance, err)
			b.send(chatID, "Could not read your token balance. Please try again.", nil)
			return
		}
		found = true
		break
	}
	if !found || amount <= 0 {
		b.send(chatID, "You no longer hold that token.", tradeKeyboard())
		return
	}

	pair := database.Pair{
		BaseToken:     tokenAddress,
		QuoteToken:    tonProxyAddress,
		BaseDecimals:  decimals,
		QuoteDecimals: tonDecimals,
	}
	order, err := b.opts.Trading.ExecuteTrade(ctx, userID, database.SideSell, pair, amount, user.Settings.Slippage)
	b.reportTrade(chatID, order, err)
}

func (b *Bot) handleBuyAmount(ctx context.Context, chatID, userID int64, payload string) {
	// Payload is "<amount>_<address>". Addresses contain underscores, so
	// split on the first one only.
	sep := strings.Index(payload, "_")
	if sep < 0 {
		log.Printf("[bot] malformed buy payload %q", payload)
		return
	}
	amount, err := strconv.ParseFloat(payload[:sep], 64)
	if err != nil || amount <= 0 {
		log.Printf("[bot] malformed buy amount %q", payload[:sep])
		return
	}
	b.executeBuy(ctx, chatID, userID, payload[sep+1:], amount)
}

func (b *Bot) executeBuy(ctx context.Context, chatID, userID int64, tokenAddress string, amount float64) {
	user, ok := b.requireWallet(ctx, chatID, userID)
	if !ok {
		return
	}
	asset, err := b.assetByAddress(ctx, tokenAddress, user.Wallet.Address)
	if err != nil {
		log.Printf("[bot] lookup asset %s: %v", tokenAddress, err)
		b.send(chatID, "Could not find that token anymore. Please search again.", tradeKeyboard())
		return
	}
	pair := database.Pair{
		BaseToken:     tokenAddress,
		QuoteToken:    tonProxyAddress,
		BaseDecimals:  asset.Decimals,
		QuoteDecimals: tonDecimals,
	}
	order, err := b.opts.Trading.ExecuteTrade(ctx, userID, database.SideBuy, pair, amount, user.Settings.Slippage)
	b.reportTrade(chatID, order, err)
}

func (b *Bot) reportTrade(chatID int64, order *database.Order, err error) {
	text, markup := tradeReport(order, err)
	b.send(chatID, text, markup)
}

// tradeReport renders an ExecuteTrade outcome as a chat reply.
func tradeReport(order *database.Order, err error) (string, *tgbotapi.InlineKeyboardMarkup) {
	switch {
	case errors.Is(err, trading.ErrNoWallet):
		return "You need a wallet first. Run /start.", nil
	case errors.Is(err, trading.ErrValidation):
		return "Those trade parameters are invalid. Check your amount and slippage settings.", settingsKeyboard()
	case err != nil:
		msg := "The swap could not be executed."
		if order != nil && order.Error != nil {
			msg = fmt.Sprintf("The swap failed: %s", *order.Error)
		}
		return msg + "\nThe order was recorded as FAILED.", tradeKeyboard()
	case order.Status == database.StatusCancelled:
		return fmt.Sprintf("Order %s was cancelled before it settled.", shortID(order.ID)), tradeKeyboard()
	case order.Status == database.StatusFailed:
		msg := "The order failed before it settled."
		if order.Error != nil {
			msg = fmt.Sprintf("The order failed before it settled: %s.", *order.Error)
		}
		return msg, tradeKeyboard()
	default:
		price := ""
		if order.Price != nil {
			price = fmt.Sprintf("\nPrice: %s TON per token", formatAmount(*order.Price))
		}
		return fmt.Sprintf("%s order completed.\nAmount: %s%s\nOrder ID: %s",
			order.Side, formatAmount(order.Amount), price, order.ID), tradeKeyboard()
	}
}

func (b *Bot) handleViewOrders(ctx context.Context, chatID, userID int64) {
	orders, err := b.opts.Trading.OrderHistory(ctx, userID)
	if err != nil {
		log.Printf("[bot] order history for %d: %v", userID, err)
		b.send(chatID, "Could not load your orders. Please try again.", nil)
		return
	}
	if len(orders) == 0 {
		b.send(chatID, "You have no orders yet.", tradeKeyboard())
		return
	}
	if len(orders) > 10 {
		orders = orders[:10]
	}
	var sb strings.Builder
	sb.WriteString("Recent orders:\n")
	var pending []database.Order
	for _, o := range orders {
		fmt.Fprintf(&sb, "\n%s  %s %s  %s", shortID(o.ID), o.Side, formatAmount(o.Amount), o.Status)
		if o.Status == database.StatusPending {
			pending = append(pending, o)
		}
	}
	b.send(chatID, sb.String(), ordersKeyboard(pending))
}

func (b *Bot) handleCancelOrder(ctx context.Context, chatID, userID int64, orderID string) {
	err := b.opts.Trading.CancelOrder(ctx, userID, orderID)
	switch {
	case errors.Is(err, trading.ErrOrderNotFound):
		b.send(chatID, "That order does not exist.", nil)
	case errors.Is(err, trading.ErrNotPending):
		b.send(chatID, "That order has already settled and cannot be cancelled.", nil)
	case err != nil:
		log.Printf("[bot] cancel order %s: %v", orderID, err)
		b.send(chatID, "Could not cancel the order. Please try again.", nil)
	default:
		b.send(chatID, fmt.Sprintf("Order %s cancelled.", shortID(orderID)), tradeKeyboard())
	}
}

func (b *Bot) handleToggleAutoTrade(ctx context.Context, chatID, userID int64) {
	user, err := b.opts.Store.GetUser(ctx, userID)
	if err != nil || user == nil {
		log.Printf("[bot] load user %d: %v", userID, err)
		b.send(chatID, "Please run /start first.", nil)
		return
	}
	user.Settings.AutoTrade = !user.Settings.AutoTrade
	if err := b.opts.Store.SaveUser(ctx, *user); err != nil {
		log.Printf("[bot] save user %d: %v", userID, err)
		b.send(chatID, "Something went wrong. Please try again.", nil)
		return
	}
	state := "disabled"
	if user.Settings.AutoTrade {
		state = "enabled"
	}
	b.send(chatID, fmt.Sprintf("Auto-trade is now %s.", state), settingsKeyboard())
}

func (b *Bot) handleRegisterCopyTrader(ctx context.Context, chatID, userID int64) {
	user, ok := b.requireWallet(ctx, chatID, userID)
	if !ok {
		return
	}
	if err := b.opts.CopyTrading.Register(ctx, userID, user.Wallet.Address); err != nil {
		log.Printf("[bot] register trader %d: %v", userID, err)
		b.send(chatID, "Could not register you as a trader. Please try again.", nil)
		return
	}
	b.send(chatID, "You are now listed as a trader. Your completed trades feed your public success rate.", copyTradeKeyboard())
}

func (b *Bot) handleTopTraders(ctx context.Context, chatID int64) {
	traders, err := b.opts.CopyTrading.Leaderboard(ctx, b.opts.Leaderboard)
	if err != nil {
		log.Printf("[bot] leaderboard: %v", err)
		b.send(chatID, "Could not load the leaderboard. Please try again.", nil)
		return
	}
	if len(traders) == 0 {
		b.send(chatID, "No traders are registered yet.", copyTradeKeyboard())
		return
	}
	var sb strings.Builder
	sb.WriteString("Top traders:\n")
	for i, t := range traders {
		fmt.Fprintf(&sb, "\n%d. %s\n   %.1f%% success over %d trades, %d followers",
			i+1, shortAddress(t.WalletAddress), t.SuccessRate, t.TotalTrades, t.Followers)
	}
	b.send(chatID, sb.String(), copyTradeKeyboard())
}

// requireWallet loads the profile and insists on a provisioned wallet.
func (b *Bot) requireWallet(ctx context.Context, chatID, userID int64) (*database.User, bool) {
	user, err := b.opts.Store.GetUser(ctx, userID)
	if err != nil {
		log.Printf("[bot] load user %d: %v", userID, err)
		b.send(chatID, "Something went wrong. Please try again.", nil)
		return nil, false
	}
	if user == nil || user.Wallet == nil {
		b.send(chatID, "You need a wallet first. Run /start.", nil)
		return nil, false
	}
	return user, true
}
