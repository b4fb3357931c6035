package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ton-trading-bot/internal/copytrade"
	"github.com/ton-trading-bot/internal/database"
	"github.com/ton-trading-bot/internal/stonfi"
	tonclient "github.com/ton-trading-bot/internal/ton"
)

// consumeInput handles a free-text reply when a prompt is pending. A valid
// reply clears the pending state; an invalid one re-prompts and keeps the
// state so the user can simply answer again.
func (b *Bot) consumeInput(ctx context.Context, user *database.User, text string) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	state := user.Settings.InputState

	switch state.Kind {
	case database.InputTokenBuy:
		return b.consumeTokenSearch(ctx, user, text)

	case database.InputTokenSell:
		return b.consumeTokenSell(ctx, user, text)

	case database.InputAmount:
		amount, err := strconv.ParseFloat(text, 64)
		if err != nil || amount <= 0 {
			return "Please enter a positive number, e.g. 10.", nil, nil
		}
		if state.Token != "" {
			// Custom buy amount for a previously chosen token.
			if err := b.clearInput(ctx, user); err != nil {
				return "", nil, err
			}
			return b.buyWithAmount(ctx, user, state.Token, amount)
		}
		user.Settings.MaxAmount = amount
		user.Settings.InputState = database.InputState{Kind: database.InputNone}
		if err := b.opts.Store.SaveUser(ctx, *user); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Default trade amount set to %s TON.", formatAmount(amount)), settingsKeyboard(), nil

	case database.InputSlippage:
		slippage, err := strconv.ParseFloat(text, 64)
		if err != nil || slippage < 0 || slippage > 100 {
			return "Slippage must be a number between 0 and 100.", nil, nil
		}
		user.Settings.Slippage = slippage
		user.Settings.InputState = database.InputState{Kind: database.InputNone}
		if err := b.opts.Store.SaveUser(ctx, *user); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Slippage tolerance set to %s%%.", formatAmount(slippage)), settingsKeyboard(), nil

	case database.InputCopyWallet:
		if !tonclient.ValidAddress(text) {
			return "That does not look like a TON address. Please paste the trader's wallet address.", nil, nil
		}
		trader, err := b.opts.CopyTrading.Follow(ctx, text)
		if errors.Is(err, copytrade.ErrTraderNotFound) {
			return "That wallet is not a registered trader. Please enter another address.", nil, nil
		}
		if err != nil {
			return "", nil, err
		}
		if err := b.clearInput(ctx, user); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Now following %s (%.1f%% success rate, %d followers).",
			shortAddress(trader.WalletAddress), trader.SuccessRate, trader.Followers), copyTradeKeyboard(), nil

	default:
		// Stale or unknown marker. Clear it rather than trap the user.
		if err := b.clearInput(ctx, user); err != nil {
			return "", nil, err
		}
		return "What would you like to do?", mainKeyboard(), nil
	}
}

func (b *Bot) buyWithAmount(ctx context.Context, user *database.User, tokenAddress string, amount float64) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	wallet := ""
	if user.Wallet != nil {
		wallet = user.Wallet.Address
	}
	asset, err := b.assetByAddress(ctx, tokenAddress, wallet)
	if err != nil {
		return "Could not find that token anymore. Please search again.", tradeKeyboard(), nil
	}
	pair := database.Pair{
		BaseToken:     tokenAddress,
		QuoteToken:    tonProxyAddress,
		BaseDecimals:  asset.Decimals,
		QuoteDecimals: tonDecimals,
	}
	order, terr := b.opts.Trading.ExecuteTrade(ctx, user.UserID, database.SideBuy, pair, amount, user.Settings.Slippage)
	text, markup := tradeReport(order, terr)
	return text, markup, nil
}

func (b *Bot) consumeTokenSearch(ctx context.Context, user *database.User, query string) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	wallet := ""
	if user.Wallet != nil {
		wallet = user.Wallet.Address
	}
	assets, err := b.opts.Venue.SearchAssets(ctx, query, wallet)
	if err != nil {
		return "", nil, err
	}
	if len(assets) == 0 {
		// Keep waiting so the user can just try another symbol.
		return fmt.Sprintf("No token matched %q. Try another symbol or paste a contract address.", query), nil, nil
	}

	asset := assets[0]
	if err := b.clearInput(ctx, user); err != nil {
		return "", nil, err
	}

	reply := fmt.Sprintf("%s\n%s", assetLabel(asset), shortAddress(asset.ContractAddress))
	if price, err := strconv.ParseFloat(asset.DexPriceUSD, 64); err == nil && price > 0 {
		reply += fmt.Sprintf("\nPrice: $%s", formatAmount(price))
	}
	reply += "\n\nHow much TON do you want to spend?"
	return reply, buyAmountKeyboard(asset.ContractAddress), nil
}

// consumeTokenSell resolves a typed symbol or address against the wallet's
// holdings and offers the matching sell button. No match keeps the prompt
// pending.
func (b *Bot) consumeTokenSell(ctx context.Context, user *database.User, query string) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	if user.Wallet == nil {
		if err := b.clearInput(ctx, user); err != nil {
			return "", nil, err
		}
		return "You need a wallet first. Run /start.", nil, nil
	}
	assets, err := b.opts.Venue.GetWalletAssets(ctx, user.Wallet.Address)
	if err != nil {
		return "", nil, err
	}
	for _, a := range assets {
		if a.Balance == "" || a.Balance == "0" {
			continue
		}
		if strings.EqualFold(a.Symbol, query) || a.ContractAddress == query {
			if err := b.clearInput(ctx, user); err != nil {
				return "", nil, err
			}
			kb := tokenListKeyboard([]tokenButton{{
				label: "Sell " + assetLabel(a),
				data:  "sell_token_" + a.ContractAddress,
			}})
			return fmt.Sprintf("Confirm selling your %s balance:", assetLabel(a)), kb, nil
		}
	}
	return fmt.Sprintf("You hold no token matching %q. Type another symbol or pick one from the list.", query), nil, nil
}

func (b *Bot) clearInput(ctx context.Context, user *database.User) error {
	user.Settings.InputState = database.InputState{Kind: database.InputNone}
	return b.opts.Store.SaveUser(ctx, *user)
}

func (b *Bot) assetByAddress(ctx context.Context, tokenAddress, walletAddress string) (*stonfi.Asset, error) {
	assets, err := b.opts.Venue.SearchAssets(ctx, tokenAddress, walletAddress)
	if err != nil {
		return nil, err
	}
	for i := range assets {
		if assets[i].ContractAddress == tokenAddress {
			return &assets[i], nil
		}
	}
	return nil, fmt.Errorf("asset %s not found", tokenAddress)
}
