package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomiwa-dev/creatorpay/internal/api"
	"github.com/tomiwa-dev/creatorpay/internal/config"
	"github.com/tomiwa-dev/creatorpay/internal/gateway"
	"github.com/tomiwa-dev/creatorpay/internal/handler"
	"github.com/tomiwa-dev/creatorpay/internal/infrastructure/kafka"
	"github.com/tomiwa-dev/creatorpay/internal/infrastructure/redis"
	"github.com/tomiwa-dev/creatorpay/internal/observability"
	core "github.com/tomiwa-dev/creatorpay/internal/repository/postgres"
	service "github.com/tomiwa-dev/creatorpay/internal/services"
	"github.com/tomiwa-dev/creatorpay/internal/webhook"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	shutdown, _ := observability.Setup("settlement-core")
	defer shutdown(context.Background())

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	transactionRepo := core.NewPostgresTransactionRepository(db)
	walletRepo := core.NewPostgresWalletRepository(db)
	requestRepo := core.NewPostgresRequestRepository(db)
	cardRepo := core.NewPostgresCardRepository(db)
	transferRepo := core.NewPostgresTransferRepository(db)

	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	paystack := gateway.NewPaystackClient(cfg.PaystackBaseURL, cfg.PaystackSecret)
	verifier := webhook.NewVerifier(cfg.PaystackSecret)

	settlement := service.NewSettlementService(transactionRepo, walletRepo, requestRepo, cardRepo, paystack, redisClient, producer)
	payout := service.NewPayoutService(transferRepo, walletRepo, paystack)

	transferConsumer := kafka.NewConsumer(cfg.KafkaBrokers, "transfer-status", "settlement-core-transfers", payout)
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	go transferConsumer.Consume(consumerCtx)
	defer transferConsumer.Close()
	defer cancelConsumer()

	h := handler.NewHandler(settlement, payout, verifier)
	router := api.SetupRouter(h, cfg.ClaimSecret)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
