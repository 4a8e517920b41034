// Package app wires the Store, Chat gateway, update Source, and Coordinator
// together and runs the process lifecycle: Config validates and builds an
// App, Run starts the work asynchronously and reports errors on a
// channel, Stop drains it within a bounded deadline.
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/avfomichev/slovobot/game/coordinator"
	"github.com/avfomichev/slovobot/runner"
	"github.com/avfomichev/slovobot/store"
	"github.com/avfomichev/slovobot/update"
)

// App runs the bot core: it boots the coordinator from persisted state,
// then feeds it every update the Source delivers until the Source's
// channel closes or the context is cancelled.
type App struct {
	wg          sync.WaitGroup
	run         runner.Runner
	log         *log.Logger
	store       store.Store
	source      update.Source
	coordinator *coordinator.Coordinator
	stopDur     time.Duration
}

// Config creates an App.
type Config struct {
	Store       store.Store
	Source      update.Source
	Coordinator *coordinator.Coordinator
	Log         *log.Logger
	// StopDur bounds how long Stop waits for in-flight dispatch and
	// timer-cancellation work to finish.
	StopDur time.Duration
}

func (cfg Config) validate() error {
	switch {
	case cfg.Store == nil:
		return fmt.Errorf("store required")
	case cfg.Source == nil:
		return fmt.Errorf("update source required")
	case cfg.Coordinator == nil:
		return fmt.Errorf("coordinator required")
	case cfg.Log == nil:
		return fmt.Errorf("log required")
	case cfg.StopDur <= 0:
		return fmt.Errorf("positive stop duration required")
	}
	return nil
}

// NewApp validates cfg and builds an App.
func (cfg Config) NewApp() (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	return &App{
		log:         cfg.Log,
		store:       cfg.Store,
		source:      cfg.Source,
		coordinator: cfg.Coordinator,
		stopDur:     cfg.StopDur,
	}, nil
}

// Run boots the coordinator from persisted state and starts consuming
// updates asynchronously, reporting the loop's terminal error, if any, on
// the returned channel when the source closes or ctx is cancelled.
func (a *App) Run(ctx context.Context) <-chan error {
	errC := make(chan error, 1)
	if err := a.run.Run(); err != nil {
		errC <- fmt.Errorf("app: %w", err)
		return errC
	}
	if err := a.coordinator.Boot(ctx); err != nil {
		a.run.Finish()
		errC <- fmt.Errorf("app: booting coordinator: %w", err)
		return errC
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := a.consume(ctx)
		a.run.FinishErr(err)
		errC <- err
	}()
	return errC
}

// consume dispatches every update the source delivers, one at a time with
// one Dispatch call per update, until the source closes or ctx is
// cancelled.
func (a *App) consume(ctx context.Context) error {
	updates := a.source.Updates()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if err := a.coordinator.Dispatch(ctx, u); err != nil {
				a.log.Printf("app: dispatching update %v: %v", u.ID, err)
			}
		}
	}
}

// Stop cancels every engine's outstanding timer so elapsed time is
// persisted, then waits up to StopDur for the consume loop to exit. If the
// loop had already stopped itself abnormally before Stop was called, that
// error is logged rather than silently discarded.
func (a *App) Stop() error {
	if !a.run.IsRunning() {
		if err := a.run.Err(); err != nil {
			a.log.Printf("app: consume loop had already stopped: %v", err)
		}
	}
	a.coordinator.Shutdown()
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(a.stopDur):
		return fmt.Errorf("app: stop timed out after %v", a.stopDur)
	}
}
