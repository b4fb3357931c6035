package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/ton-trading-bot/internal/config"
	"github.com/ton-trading-bot/internal/copytrade"
	"github.com/ton-trading-bot/internal/database"
	"github.com/ton-trading-bot/internal/server"
	"github.com/ton-trading-bot/internal/stonfi"
	"github.com/ton-trading-bot/internal/telegram"
	"github.com/ton-trading-bot/internal/ton"
	"github.com/ton-trading-bot/internal/trading"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	tonClient := ton.NewClient(ton.Config{
		Endpoint:   cfg.TonEndpoint,
		APIKey:     cfg.TonAPIKey,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	})
	venue := stonfi.NewClient(cfg.StonAPIBase, cfg.HTTPTimeout)

	aggregator := copytrade.NewAggregator(store)
	svc := trading.NewService(store, venue, aggregator)

	reconciler := trading.NewReconciler(trading.ReconcilerOptions{
		Service:  svc,
		MaxAge:   cfg.StaleOrderAfter,
		Interval: cfg.ReconcileInterval,
	})
	reconciler.Start(ctx)
	defer reconciler.Stop()

	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("telegram bot error: %v", err)
	}
	botAPI.Debug = false

	bot := telegram.New(telegram.Options{
		API:         botAPI,
		Store:       store,
		Wallets:     tonClient,
		Trading:     svc,
		Venue:       venue,
		CopyTrading: aggregator,
		MasterKey:   cfg.MasterKey,
		Leaderboard: cfg.LeaderboardLimit,
	})

	srv := server.New(server.Options{Config: cfg, Store: store})
	go func() {
		if err := srv.Start(ctx); err != nil {
			log.Printf("http server: %v", err)
			stop()
		}
	}()

	log.Println("trading bot started")
	bot.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
