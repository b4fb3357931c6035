package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ton-trading-bot/internal/database"
)

type tokenButton struct {
	label string
	data  string
}

func mainKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Buy", "buy_token"),
			tgbotapi.NewInlineKeyboardButtonData("Sell", "sell_token"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Wallet", "wallet"),
			tgbotapi.NewInlineKeyboardButtonData("Orders", "view_orders"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Copy trading", "copy_trade"),
			tgbotapi.NewInlineKeyboardButtonData("Settings", "settings"),
		),
	)
	return &kb
}

func tradeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Buy", "buy_token"),
			tgbotapi.NewInlineKeyboardButtonData("Sell", "sell_token"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("My orders", "view_orders"),
		),
	)
	return &kb
}

func settingsKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Trade amount", "set_amount"),
			tgbotapi.NewInlineKeyboardButtonData("Slippage", "set_slippage"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Toggle auto-trade", "toggle_auto_trade"),
		),
	)
	return &kb
}

func walletKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Balance", "check_balance"),
			tgbotapi.NewInlineKeyboardButtonData("Deposit", "deposit_instructions"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Export recovery phrase", "export_seed"),
		),
	)
	return &kb
}

func copyTradeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Top traders", "top_traders"),
			tgbotapi.NewInlineKeyboardButtonData("Follow a trader", "set_copy_wallet"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Register as trader", "register_copy_trader"),
		),
	)
	return &kb
}

func buyAmountKeyboard(tokenAddress string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1 TON", "buy_amount_1_"+tokenAddress),
			tgbotapi.NewInlineKeyboardButtonData("5 TON", "buy_amount_5_"+tokenAddress),
			tgbotapi.NewInlineKeyboardButtonData("10 TON", "buy_amount_10_"+tokenAddress),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Custom amount", "buy_custom_"+tokenAddress),
		),
	)
	return &kb
}

func tokenListKeyboard(tokens []tokenButton) *tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tokens))
	for _, t := range tokens {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.label, t.data),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func ordersKeyboard(pending []database.Order) *tgbotapi.InlineKeyboardMarkup {
	if len(pending) == 0 {
		return tradeKeyboard()
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(pending))
	for _, o := range pending {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Cancel "+shortID(o.ID), "cancel_order_"+o.ID),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
