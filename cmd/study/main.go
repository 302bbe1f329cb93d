// Package main provides the study command, a terminal client that unlocks
// the encrypted container and runs a quiz session on stdin and stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/scry-vault/internal/config"
	"github.com/phrazzld/scry-vault/internal/container"
	"github.com/phrazzld/scry-vault/internal/content"
	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/platform/logger"
	"github.com/phrazzld/scry-vault/internal/service"
	"github.com/phrazzld/scry-vault/internal/task"
	"github.com/phrazzld/scry-vault/internal/terminal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var (
		path     string
		seed     int64
		attempts int
		logLevel string
	)
	flag.StringVar(&path, "container", cfg.Container.Path, "encrypted container to study")
	flag.Int64Var(&seed, "seed", cfg.Session.Seed, "shuffle seed (0 = random)")
	flag.IntVar(&attempts, "attempts", 0, "password attempts before giving up (0 = unlimited)")
	flag.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.SetupCLI(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One worker is enough for a single interactive user
	queue := task.NewTaskQueue(1, log)
	pool := task.NewWorkerPool(queue, task.WorkerPoolConfig{WorkerCount: 1}, log)
	pool.Start()
	defer func() {
		queue.Close()
		pool.Stop()
	}()

	unlocker, err := service.NewUnlocker(queue,
		container.NewCodec(container.WithLogger(log)),
		content.NewParser(log),
		cfg.Unlock.Timeout,
		log)
	if err != nil {
		return err
	}

	client, err := terminal.NewClient(service.NewFileSource(path), unlocker, os.Stdin, os.Stdout,
		terminal.Config{Seed: seed, MaxAttempts: attempts}, log)
	if err != nil {
		return err
	}

	_, err = client.Run(ctx)
	switch {
	case errors.Is(err, service.ErrContainerMissing):
		return fmt.Errorf("container %s not found; run the encrypt command first", path)
	case errors.Is(err, domain.ErrAuthentication):
		return errors.New("too many failed password attempts")
	case errors.Is(err, context.Canceled):
		return nil
	}
	return err
}
