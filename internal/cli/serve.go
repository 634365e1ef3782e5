package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paddockpulse/stablehand/internal/backbone"
	"github.com/paddockpulse/stablehand/internal/config"
	"github.com/paddockpulse/stablehand/internal/escalation"
	"github.com/paddockpulse/stablehand/internal/intake"
	"github.com/paddockpulse/stablehand/internal/notify"
	"github.com/paddockpulse/stablehand/internal/roster"
	"github.com/paddockpulse/stablehand/internal/routing"
	"github.com/paddockpulse/stablehand/internal/session"
	sig "github.com/paddockpulse/stablehand/internal/signal"
	"github.com/paddockpulse/stablehand/internal/store"
)

func newServeCmd() *cobra.Command {
	var backboneURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the routing and session service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if backboneURL != "" {
				cfg.Backbone.URL = backboneURL
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Persistence backend.
			var st store.Store
			if cfg.Store.Backend == "sqlite" {
				dbPath := cfg.Store.Path
				if dbPath == "" {
					dbPath = filepath.Join(paths.Data, "stablehand.db")
				}
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				st = store.NewSQLiteStore(db)
				log.Info().Str("path", dbPath).Msg("using SQLite store")
			} else {
				st = store.NewMemoryStore()
				log.Info().Msg("using in-memory store")
			}

			// Staff roster from config.
			ros := roster.New(log)
			if err := ros.Refresh(ctx, &roster.StaticProvider{Members: cfg.Staff}); err != nil {
				return fmt.Errorf("loading staff roster: %w", err)
			}

			// Content analysis: provider plus lexicon fallback.
			var provider sig.Provider
			if cfg.Analysis.Endpoint != "" {
				provider = sig.NewHTTPProvider(
					cfg.Analysis.Endpoint,
					cfg.Analysis.APIKey,
					cfg.Analysis.Model,
					time.Duration(cfg.Analysis.TimeoutSeconds)*time.Second,
				)
				log.Info().Str("endpoint", cfg.Analysis.Endpoint).Msg("analysis provider configured")
			} else {
				log.Info().Msg("no analysis provider configured, lexicon classification only")
			}
			analyzer := sig.NewAnalyzer(provider, log)

			// Event backbone connection.
			hostname, _ := os.Hostname()
			header := http.Header{}
			if cfg.Backbone.Token != "" {
				header.Set("Authorization", "Bearer "+cfg.Backbone.Token)
			}
			mgr := backbone.NewManager(backbone.Config{
				URL:               cfg.Backbone.URL,
				TenantID:          cfg.TenantID,
				OwnerID:           hostname,
				BaseDelay:         time.Duration(cfg.Backbone.BaseDelayMS) * time.Millisecond,
				MaxAttempts:       cfg.Backbone.MaxAttempts,
				HeartbeatInterval: time.Duration(cfg.Backbone.HeartbeatSeconds) * time.Second,
			}, &backbone.WebSocketDialer{Header: header}, log)

			coord := session.NewCoordinator(
				session.Config{
					TenantID: cfg.TenantID,
					SlotWait: time.Duration(cfg.Session.SlotWaitMinutes) * time.Minute,
				},
				ros,
				routing.NewEngine(log),
				escalation.NewPredictor(escalation.DefaultConfig()),
				analyzer,
				st,
				mgr,
				log,
			)
			bridge := session.NewBridge(coord, log)
			bridge.Start(mgr)
			defer bridge.Stop()

			// Notification sinks.
			adapters := []notify.Adapter{notify.NewLogAdapter(log)}
			if irc := cfg.Notify.IRC; irc != nil {
				adapter := notify.NewIRCAdapter(notify.IRCOptions{
					Server:   irc.Server,
					Port:     irc.Port,
					Nick:     irc.Nick,
					Channels: irc.Channels,
					UseTLS:   irc.UseTLS,
					SASL:     irc.SASL,
					Password: irc.Password,
				}, log)
				adapters = append(adapters, adapter)
				go func() {
					if err := adapter.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Warn().Err(err).Msg("IRC sink stopped")
					}
				}()
			}
			if k := cfg.Notify.Kafka; k != nil {
				adapter := notify.NewKafkaAdapter(notify.KafkaOptions{
					Brokers: k.Brokers,
					Topic:   k.Topic,
				}, log)
				adapters = append(adapters, adapter)
				defer adapter.Close()
			}

			fanout := notify.NewFanout(adapters, log)
			fanout.Start(mgr)
			defer fanout.Stop()

			// Email intake.
			if in := cfg.Intake; in != nil {
				poller := intake.NewPoller(intake.Options{
					Host:     in.Host,
					Port:     in.Port,
					Email:    in.Email,
					Password: in.Password,
					Mailbox:  in.Mailbox,
					Interval: time.Duration(in.IntervalSeconds) * time.Second,
					TenantID: cfg.TenantID,
				}, analyzer, st, log)
				go func() {
					if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Warn().Err(err).Msg("email intake stopped")
					}
				}()
			}

			log.Info().
				Str("tenant", cfg.TenantID).
				Str("backbone", cfg.Backbone.URL).
				Int("staff", len(cfg.Staff)).
				Msg("stablehand serving")

			err = mgr.Run(ctx)
			if errors.Is(err, context.Canceled) {
				err = nil
			}

			if derr := mgr.Disconnect(); derr != nil {
				log.Warn().Err(derr).Msg("backbone disconnect failed")
			}
			log.Info().Msg("stablehand stopped")
			return err
		},
	}

	cmd.Flags().StringVar(&backboneURL, "backbone-url", "", "override the backbone WebSocket URL")
	return cmd
}
