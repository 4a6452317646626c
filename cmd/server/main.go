package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pradeepmisra81/trudesk/internal/api"
	"github.com/pradeepmisra81/trudesk/internal/config"
	"github.com/pradeepmisra81/trudesk/internal/database"
	"github.com/pradeepmisra81/trudesk/internal/email/inbound/pipeline"
	"github.com/pradeepmisra81/trudesk/internal/events"
	"github.com/pradeepmisra81/trudesk/internal/mailcheck"
	"github.com/pradeepmisra81/trudesk/internal/metrics"
	"github.com/pradeepmisra81/trudesk/internal/notifications"
	"github.com/pradeepmisra81/trudesk/internal/repository"
	"github.com/pradeepmisra81/trudesk/internal/service"
	"github.com/pradeepmisra81/trudesk/internal/tickets"
)

var (
	version = "dev"
	commit  = "none"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:     "trudesk-server",
	Short:   "Helpdesk backend with mail-to-ticket ingestion",
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "config.yml", "configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := log.New(os.Stdout, "[trudesk] ", log.LstdFlags)

	if err := config.Load(configFile, nil); err != nil {
		return err
	}
	cfg := config.Get()

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	settingRepo := repository.NewSettingRepository(db)
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	typeRepo := repository.NewTicketTypeRepository(db)
	priorityRepo := repository.NewPriorityRepository(db)
	ticketRepo := repository.NewTicketRepository(db)

	bus := events.NewBus()
	hub := notifications.NewHub(logger)
	hub.SubscribeTo(bus)
	go hub.Run()

	mailMetrics := metrics.NewMailCheck()
	ingestion := pipeline.New(userRepo, groupRepo, typeRepo, priorityRepo, ticketRepo,
		pipeline.WithLogger(logger),
		pipeline.WithEmitter(bus))
	checker := mailcheck.New(ingestion,
		mailcheck.WithLogger(logger),
		mailcheck.WithMetrics(mailMetrics))

	settings, err := settingRepo.GetAll(ctx)
	if err != nil {
		return err
	}
	if err := checker.Init(ctx, settings); err != nil {
		return err
	}
	defer checker.Stop()

	ticketService := tickets.NewService(ticketRepo, groupRepo, tickets.DefaultCapabilities(),
		tickets.WithLogger(logger))
	attachmentStore := service.NewAttachmentStore(cfg.Uploads.Root)

	router := api.NewRouter(api.Deps{
		Tickets:     api.NewTicketHandlers(ticketService, logger),
		Attachments: api.NewAttachmentHandler(attachmentStore, ticketRepo, logger),
		Users:       userRepo,
		Poller:      checker,
		WSHandler:   hub.Handle,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Printf("received %v, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
