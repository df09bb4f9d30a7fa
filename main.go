package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainpe.com/payment-gateway/common"
	"chainpe.com/payment-gateway/config"
	"chainpe.com/payment-gateway/horizon"
	"chainpe.com/payment-gateway/listener"
	"chainpe.com/payment-gateway/log"
	"chainpe.com/payment-gateway/models"
	"chainpe.com/payment-gateway/reconciler"
	"chainpe.com/payment-gateway/store/sqlite"
	"chainpe.com/payment-gateway/web"
	"chainpe.com/payment-gateway/webhook"
)

func main() {
	cfg, err := config.ParseConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	tracerShutdown := common.InitGlobalTracer(cfg.JaegerConfig)
	defer tracerShutdown()

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Could not open database %s: %v", cfg.DatabasePath, err)
	}
	defer db.Close()

	dispatcher := webhook.NewDispatcher(&cfg.Webhook)

	settlementAsset := models.CreditAsset(cfg.Ledger.SettlementAssetCode, cfg.Ledger.SettlementAssetIssuer)
	rec, err := reconciler.New(db, dispatcher, &cfg.Reconciler, settlementAsset)
	if err != nil {
		log.Fatalf("Could not build reconciler: %v", err)
	}

	client := horizon.NewHorizonClient(&cfg.Ledger)
	supervisor := listener.NewSupervisor(client, db, &cfg.Ledger, rec)

	statusServer := web.NewServer(cfg.Port, db, rec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go dispatcher.Run(ctx)
	go statusServer.Start()

	log.Infof("Payment gateway settlement engine started (horizon %s, asset %s)", cfg.Ledger.HorizonUrl, cfg.Ledger.SettlementAssetCode)

	// Blocks until shutdown is requested, then until every address loop
	// has finished its current event.
	supervisor.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	statusServer.Shutdown(shutdownCtx)

	log.Info("Shutdown complete")
}
