package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/config"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/connectivity"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
	appHTTP "github.com/cmlabs-hris/leavesync-agent-go/internal/handler/http"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/cron"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/database"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/events"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/remote/erp"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/repository/sqlite"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/service/auth"
	leaveService "github.com/cmlabs-hris/leavesync-agent-go/internal/service/leave"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/service/notification"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/service/poller"
	syncService "github.com/cmlabs-hris/leavesync-agent-go/internal/service/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	db, err := database.NewSQLiteDB(cfg.Database.Path)
	if err != nil {
		fmt.Println("Error opening database:", err)
		os.Exit(1)
	}
	defer db.Close()

	outboxRepo := sqlite.NewOutboxRepository(db)
	ledgerRepo := sqlite.NewLedgerRepository(db)
	cacheRepo := sqlite.NewCacheRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)

	erpClient := erp.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	monitor := connectivity.NewMonitor(erpClient, cfg.Sync.ProbeInterval)
	hub := events.NewHub()
	holder := session.NewHolder()

	dispatcher := notification.NewDispatcher(notification.LogNotifier{}, hub)
	managerPoller := poller.NewManagerPoller(erpClient, ledgerRepo, dispatcher, holder, cfg.Sync.PollInterval)
	employeePoller := poller.NewEmployeePoller(erpClient, ledgerRepo, cacheRepo, dispatcher, holder, cfg.Sync.PollInterval)

	engine := syncService.NewEngine(outboxRepo, erpClient, monitor, hub, sessionRepo, holder, syncService.Config{
		Interval:    cfg.Sync.Interval,
		MaxAttempts: cfg.Sync.MaxAttempts,
	})

	authService := auth.NewAuthService(erpClient, sessionRepo, holder, []poller.Poller{employeePoller, managerPoller})
	leaveSvc := leaveService.NewService(erpClient, monitor, cacheRepo, outboxRepo, ledgerRepo, holder, hub)

	scheduler := cron.NewScheduler()
	cron.NewRetentionJobs(outboxRepo, cfg.Sync.RequestRetention, cfg.Sync.DecisionRetention).RegisterJobs(scheduler)

	// Resume the persisted session before any loop starts so a cold start
	// behaves like the last login.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := authService.Resume(ctx); err != nil {
		slog.Warn("session resume failed", "error", err)
	}
	cancel()

	monitor.Start()
	engine.Start()
	scheduler.Start()

	authHandler := appHTTP.NewAuthHandler(authService)
	leaveHandler := appHTTP.NewLeaveHandler(leaveSvc)
	outboxHandler := appHTTP.NewOutboxHandler(leaveSvc, engine)
	eventsHandler := appHTTP.NewEventsHandler(hub)

	router := appHTTP.NewRouter(cfg.App.Env, authHandler, leaveHandler, outboxHandler, eventsHandler)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		slog.Info("agent listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}

	scheduler.Stop()
	engine.Stop()
	authService.Stop()
	monitor.Stop()
}
