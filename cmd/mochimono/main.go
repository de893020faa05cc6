// Command mochimono is the CLI for the local-first household
// inventory: photograph possessions, classify them with the remote
// analysis service, and track disposal recommendations.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ayane-t/mochimono/internal/config"
	"github.com/ayane-t/mochimono/internal/logging"
	"github.com/ayane-t/mochimono/internal/realm"
	"github.com/ayane-t/mochimono/internal/store"
	"github.com/ayane-t/mochimono/internal/syncmon"
)

var (
	flagConfig string
	flagRealm  string
	flagUser   string
)

// app holds the wired components for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	monitor *syncmon.Monitor
	feed    *syncmon.Feed
}

// scope resolves the caller's access lens from flags and config.
// --realm selects a shared realm; otherwise the scope is private.
func (a *app) scope() realm.Scope {
	userID := flagUser
	if userID == "" {
		userID = a.cfg.UserID
	}
	if flagRealm != "" {
		return realm.Shared(userID, flagRealm)
	}
	return realm.Private(userID)
}

// newApp loads config, opens the store, and prepares the sync
// monitor. Callers must close() when done.
func newApp(cmd *cobra.Command) (*app, error) {
	var cfg *config.Config
	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if cfg.UserID == "" {
		// First run: mint a stable local identity.
		cfg.UserID = uuid.NewString()
	}

	logger := logging.New(cfg.Log)

	st, err := store.Open(cmd.Context(), cfg.DBPath, store.Options{
		Development: cfg.Development,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, store: st}

	if cfg.Sync.Enabled() {
		a.monitor = syncmon.New(nil, logger)
		a.feed = syncmon.NewFeed(syncmon.FeedConfig{
			URL:       cfg.Sync.URL,
			AuthToken: cfg.Sync.AuthToken,
			Logger:    logger,
		}, a.monitor)
		a.monitor.SetTrigger(a.feed)
	} else {
		a.monitor = syncmon.NewDisabled(logger)
	}

	return a, nil
}

func (a *app) close() {
	if a.feed != nil {
		a.feed.Stop()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

var rootCmd = &cobra.Command{
	Use:   "mochimono",
	Short: "Local-first household inventory with disposal recommendations",
	Long: `mochimono tracks your possessions in a local SQLite database:
what to keep, what to sell online or to a thrift shop, what to donate,
and what to throw away, with estimated values.

Items can stay private or be shared into a family realm. Background
replication syncs the database across devices when configured; local
writes never wait for the network.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.mochimono/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagRealm, "realm", "", "query scope: realm id (default private)")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "acting user id (default from config)")
}
