package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmstock/internal/config"
	"github.com/mamadbah2/farmstock/internal/repository/mongodb"
	"github.com/mamadbah2/farmstock/internal/repository/sheets"
	"github.com/mamadbah2/farmstock/internal/scheduler"
	"github.com/mamadbah2/farmstock/internal/server/handlers"
	"github.com/mamadbah2/farmstock/internal/server/router"
	farmsvc "github.com/mamadbah2/farmstock/internal/service/farm"
	inventorysvc "github.com/mamadbah2/farmstock/internal/service/inventory"
	reportingsvc "github.com/mamadbah2/farmstock/internal/service/reporting"
	"github.com/mamadbah2/farmstock/pkg/clients/backend"
	whatsappclient "github.com/mamadbah2/farmstock/pkg/clients/whatsapp"
	"github.com/mamadbah2/farmstock/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	farmSvc := farmsvc.NewService(mongoRepo.Sessions(), cfg.Backend.Token, logger.Named(baseLogger, "svc.farm"))
	backendClient := backend.NewClient(cfg.Backend, farmSvc)
	inventorySvc := inventorysvc.NewService(backendClient, farmSvc, logger.Named(baseLogger, "svc.inventory"))
	inventorySvc.Normalizer().WithTimeout(cfg.Backend.DetailTimeout)

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = repo
	} else {
		baseLogger.Warn("google sheets credentials missing, inventory export disabled")
	}

	var messenger whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		messenger = whatsappclient.NewClient(cfg.WhatsApp)
		baseLogger.Info("whatsapp digest delivery enabled")
	} else {
		baseLogger.Warn("whatsapp token missing, digest delivery disabled")
	}

	reportingSvc := reportingsvc.NewService(inventorySvc, mongoRepo, sheetsRepo, messenger, cfg.WhatsApp.RecipientID, baseLogger.Named("svc.reporting"))

	inventoryHandler := handlers.NewInventoryHandler(inventorySvc, baseLogger.Named("handlers.inventory"))
	sessionHandler := handlers.NewSessionHandler(farmSvc, reportingSvc, baseLogger.Named("handlers.session"))
	engine := router.New(inventoryHandler, sessionHandler, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Backend.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
