package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jadevit/touchctl/internal/actions"
	"github.com/jadevit/touchctl/internal/config"
	"github.com/jadevit/touchctl/internal/control"
	"github.com/jadevit/touchctl/internal/logging"
	"github.com/jadevit/touchctl/internal/pipeline"
)

// runDaemon is the hidden entry point spawned by `touchctl start`. It
// loads the profile store, opens the virtual-input sink, starts the
// control socket and config watcher, and runs the pipeline loop until
// SIGINT/SIGTERM or a "shutdown" control command.
func runDaemon() error {
	log := logging.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	store, err := config.LoadOrInstallDefault(home)
	if err != nil {
		return fmt.Errorf("load profile store: %w", err)
	}
	log.Infof("active profile: %s", store.ActiveName)

	watcher, err := config.WatchProfiles(store, log)
	if err != nil {
		log.Warnf("config watcher disabled: %v", err)
		watcher = nil
	}

	if err := control.EnsureRuntimeDir(home); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	socketPath := control.SocketPath(home)
	server, err := control.Listen(socketPath, log)
	if err != nil {
		return fmt.Errorf("start control socket: %w", err)
	}
	go server.Serve()

	sink, err := actions.NewVirtualInput()
	if err != nil {
		return fmt.Errorf("create virtual input device: %w", err)
	}
	defer sink.Close()

	loop := pipeline.NewLoop(store, server, watcher, sink, socketPath, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("received shutdown signal")
		cancel()
	}()

	log.Info("touchctl daemon running")
	loop.Run(ctx)
	log.Info("touchctl daemon stopped")
	return nil
}
