// Command slovobot runs the word-chain chat game bot core: it wires the
// Postgres store, the outbound chat gateway, a channel-based update source,
// and the coordinator, then serves until an OS signal asks it to stop.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/avfomichev/slovobot/app"
	"github.com/avfomichev/slovobot/chat"
	"github.com/avfomichev/slovobot/game"
	"github.com/avfomichev/slovobot/game/coordinator"
	"github.com/avfomichev/slovobot/store/postgres"
	"github.com/avfomichev/slovobot/update"
)

func main() {
	logger := log.New(os.Stderr, "slovobot: ", log.LstdFlags)
	var cfg config
	cmd := newCmd(&cfg, func(cmd *cobra.Command, cfg *config) error {
		return run(cmd.Context(), cfg, logger)
	})
	if err := cmd.Execute(); err != nil {
		logger.Fatal(err)
	}
}

// run builds every collaborator from cfg and serves until ctx is cancelled
// by an OS signal.
func run(ctx context.Context, cfg *config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.Config{
		DriverName:     cfg.databaseDriver,
		DataSourceName: cfg.databaseURL,
		QueryPeriod:    cfg.queryTimeout,
	}.NewStore()
	if err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}
	defer pg.Close()
	if err := pg.Setup(ctx); err != nil {
		return fmt.Errorf("setting up schema: %w", err)
	}

	gateway := chat.NewHTTPGateway(cfg.chatBaseURL, logger)

	coord, err := coordinator.Config{
		Store:          pg,
		Chat:           gateway,
		Log:            logger,
		Debug:          cfg.debug,
		DefaultSetting: game.SettingTitle(cfg.defaultSetting),
	}.New()
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}

	// The real long-poll ingester or AMQP consumer that feeds this channel
	// is an external collaborator; this source is the boundary
	// they would write into.
	source := update.NewChan(64)

	a, err := app.Config{
		Store:       pg,
		Source:      source,
		Coordinator: coord,
		Log:         logger,
		StopDur:     cfg.stopTimeout,
	}.NewApp()
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}

	errC := a.Run(ctx)
	select {
	case <-ctx.Done():
		logger.Printf("shutting down: %v", ctx.Err())
	case err := <-errC:
		if err != nil {
			logger.Printf("update loop stopped: %v", err)
		}
	}
	return a.Stop()
}
