// Command slakit runs the SLA tracking and escalation service.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/slakit-io/slakit/internal/api"
	"github.com/slakit-io/slakit/internal/cache"
	"github.com/slakit-io/slakit/internal/config"
	"github.com/slakit-io/slakit/internal/database"
	"github.com/slakit-io/slakit/internal/notifications"
	"github.com/slakit-io/slakit/internal/repository"
	"github.com/slakit-io/slakit/internal/seeds"
	"github.com/slakit-io/slakit/internal/services/escalation"
	"github.com/slakit-io/slakit/internal/services/scheduler"
	"github.com/slakit-io/slakit/internal/services/sla"
	"github.com/slakit-io/slakit/internal/version"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:     "slakit",
		Short:   "SLA tracking and automatic escalation service",
		Version: version.Version,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")

	root.AddCommand(serveCmd(), cycleCmd(), dispatchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// services bundles everything built from one configuration.
type services struct {
	db         *sql.DB
	tracker    *sla.Tracker
	engine     *escalation.Engine
	dispatcher *notifications.Dispatcher
	slas       repository.SLAStore
	rules      repository.RuleStore
	logs       repository.EscalationLogStore
	logger     *log.Logger
}

func buildServices(cfg *config.Config, logger *log.Logger) (*services, error) {
	db, err := database.Connect(&cfg.Database)
	if err != nil {
		return nil, err
	}

	tickets := repository.NewTicketRepository(db)
	slas := repository.NewSLARepository(db)
	escalations := repository.NewEscalationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	comments := repository.NewCommentRepository(db)
	users := repository.NewUserRepository(db)

	var locker escalation.Locker
	if cfg.Redis.Enabled {
		client, err := cache.Connect(&cfg.Redis)
		if err != nil {
			db.Close()
			return nil, err
		}
		hostname, _ := os.Hostname()
		holder := fmt.Sprintf("%s-%d", hostname, os.Getpid())
		locker = cache.NewLease(client, "slakit:escalation:cycle", holder, cfg.Scheduler.CycleTimeout)
	}

	engine := escalation.NewEngine(escalation.Deps{
		Tickets:       tickets,
		Rules:         escalations,
		Logs:          escalations,
		Comments:      comments,
		Notifications: notificationRepo,
		Users:         users,
	}, escalation.Options{
		OpenStatuses: cfg.SLA.OpenStatuses,
		BatchSize:    cfg.SLA.BatchSize,
		SystemUserID: cfg.SLA.SystemUserID,
		Locker:       locker,
		Logger:       logger,
	})

	var sender notifications.Sender = &notifications.LogSender{Logger: logger}
	if addr := os.Getenv("SLAKIT_SMTP_ADDR"); addr != "" {
		sender = &notifications.SMTPSender{
			Addr: addr,
			From: os.Getenv("SLAKIT_SMTP_FROM"),
		}
	}

	return &services{
		db:         db,
		tracker:    sla.NewTracker(tickets, slas, logger),
		engine:     engine,
		dispatcher: notifications.NewDispatcher(notificationRepo, users, sender, logger),
		slas:       slas,
		rules:      escalations,
		logs:       escalations,
		logger:     logger,
	}, nil
}

func loadConfig(logger *log.Logger) *config.Config {
	if err := config.Load(configPath); err != nil {
		logger.Printf("config: %v, using defaults", err)
	}
	return config.Get()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the job scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(os.Stdout, "", log.LstdFlags)
			cfg := loadConfig(logger)

			svc, err := buildServices(cfg, logger)
			if err != nil {
				return err
			}
			defer svc.db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.SLA.SeedFile != "" {
				if err := seeds.Apply(ctx, cfg.SLA.SeedFile, svc.slas, svc.rules, cfg.SLA.SystemUserID, logger); err != nil {
					return fmt.Errorf("apply seeds: %w", err)
				}
			}

			var sched *scheduler.Service
			if cfg.Scheduler.Enabled {
				sched = scheduler.NewService(
					scheduler.WithLogger(logger),
					scheduler.WithEscalationEngine(svc.engine),
					scheduler.WithDispatcher(svc.dispatcher),
					scheduler.WithJobs(scheduler.DefaultJobs(
						cfg.Scheduler.EscalationSchedule,
						cfg.Scheduler.DispatchSchedule,
						int(cfg.Scheduler.CycleTimeout.Seconds()),
					)...),
				)
				go func() {
					if err := sched.Run(ctx); err != nil {
						logger.Printf("scheduler stopped: %v", err)
					}
				}()
			}

			handlers := &api.Handlers{
				Tracker:      svc.tracker,
				Engine:       svc.engine,
				SLAs:         svc.slas,
				Rules:        svc.rules,
				Logs:         svc.logs,
				SystemUserID: cfg.SLA.SystemUserID,
				Logger:       logger,
			}
			if sched != nil {
				handlers.Scheduler = sched
			}

			server := &http.Server{
				Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
				Handler:      api.NewRouter(handlers),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Printf("listening on %s", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func cycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run one escalation cycle and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(os.Stderr, "", log.LstdFlags)
			cfg := loadConfig(logger)

			svc, err := buildServices(cfg, logger)
			if err != nil {
				return err
			}
			defer svc.db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Scheduler.CycleTimeout)
			defer cancel()

			result, err := svc.engine.RunCycle(ctx)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func dispatchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Deliver pending escalation notifications once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(os.Stderr, "", log.LstdFlags)
			cfg := loadConfig(logger)

			svc, err := buildServices(cfg, logger)
			if err != nil {
				return err
			}
			defer svc.db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			sent, failed, err := svc.dispatcher.DispatchPending(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Printf("sent %d, failed %d\n", sent, failed)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum notifications to deliver")
	return cmd
}
