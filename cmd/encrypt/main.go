// Package main provides the encrypt command, which turns a plaintext card
// deck into the encrypted container served to study clients.
//
// Usage:
//
//	encrypt [-in sample-data.json] [-out data.json.enc] <password>
//
// The -in and -out defaults come from container.source and container.path
// in the loaded configuration.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/phrazzld/scry-vault/internal/config"
	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/platform/logger"
	"github.com/phrazzld/scry-vault/internal/producer"
)

func main() {
	fs := flag.NewFlagSet("encrypt", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: encrypt [flags] <password>")
		fs.PrintDefaults()
	}

	appCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg, err := producer.ParseConfig(fs, os.Args[1:], appCfg.Container)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		if errors.Is(err, domain.ErrInput) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fs.Usage()
		}
		os.Exit(1)
	}

	log := logger.SetupCLI(cfg.LogLevel)

	report, err := producer.Run(cfg, nil, log)
	if err != nil {
		switch {
		case errors.Is(err, producer.ErrIO):
			fmt.Fprintf(os.Stderr, "File error: %v\n", err)
		case errors.Is(err, domain.ErrFormat):
			fmt.Fprintf(os.Stderr, "Invalid card data: %v\n", err)
		default:
			fmt.Fprintf(os.Stderr, "Encryption failed: %v\n", err)
		}
		os.Exit(1)
	}

	producer.WriteReport(os.Stdout, report)
}
