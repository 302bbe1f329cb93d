package producer

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/phrazzld/scry-vault/internal/config"
	"github.com/phrazzld/scry-vault/internal/container"
	"github.com/phrazzld/scry-vault/internal/content"
	"github.com/phrazzld/scry-vault/internal/domain"
)

// Default file names, relative to the working directory. They apply when the
// loaded configuration leaves a path empty.
const (
	DefaultInput  = "sample-data.json"
	DefaultOutput = "data.json.enc"
)

// ErrIO marks failures reading the source or writing the container.
var ErrIO = errors.New("file i/o failed")

// Config holds encrypt command configuration.
type Config struct {
	Input    string
	Output   string
	Password string
	Check    bool
	LogLevel string
}

// Report summarises a successful run. It never carries the password or key.
type Report struct {
	Output        string
	OriginalSize  int
	EncryptedSize int
	Cipher        string
}

// Encrypter seals plaintext under a password.
type Encrypter interface {
	Encrypt(plaintext []byte, password string) ([]byte, error)
}

// ParseConfig parses flags and the positional password into a Config.
// defaults.Source and defaults.Path seed -in and -out.
// A missing password is reported as domain.ErrInput.
func ParseConfig(fs *flag.FlagSet, args []string, defaults config.ContainerConfig) (Config, error) {
	var cfg Config

	input, output := defaults.Source, defaults.Path
	if input == "" {
		input = DefaultInput
	}
	if output == "" {
		output = DefaultOutput
	}

	fs.StringVar(&cfg.Input, "in", input, "plaintext JSON to encrypt")
	fs.StringVar(&cfg.Output, "out", output, "encrypted container to write")
	fs.BoolVar(&cfg.Check, "check", true, "validate the cards before encrypting")
	fs.StringVar(&cfg.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	switch fs.NArg() {
	case 0:
		return cfg, fmt.Errorf("%w: password argument is required", domain.ErrInput)
	case 1:
		cfg.Password = fs.Arg(0)
	default:
		return cfg, fmt.Errorf("%w: expected one password argument, got %d", domain.ErrInput, fs.NArg())
	}
	if cfg.Password == "" {
		return cfg, fmt.Errorf("%w: password must not be empty", domain.ErrInput)
	}
	return cfg, nil
}

// Run reads cfg.Input, encrypts it and writes cfg.Output.
func Run(cfg Config, enc Encrypter, log *slog.Logger) (Report, error) {
	if log == nil {
		log = slog.Default()
	}
	if enc == nil {
		enc = container.NewCodec(container.WithLogger(log))
	}
	log = log.With(slog.String("component", "producer"))

	data, err := os.ReadFile(cfg.Input)
	if err != nil {
		return Report{}, fmt.Errorf("read %s: %w: %w", cfg.Input, ErrIO, err)
	}

	if cfg.Check {
		pkg, err := content.NewParser(log).Parse(data)
		if err != nil {
			return Report{}, fmt.Errorf("check %s: %w", cfg.Input, err)
		}
		log.Debug("content checked", slog.Int("card_count", pkg.Len()))
	}

	blob, err := enc.Encrypt(data, cfg.Password)
	if err != nil {
		return Report{}, fmt.Errorf("encrypt: %w", err)
	}

	// The container is a public static asset
	if err := os.WriteFile(cfg.Output, blob, 0o644); err != nil {
		return Report{}, fmt.Errorf("write %s: %w: %w", cfg.Output, ErrIO, err)
	}

	log.Info("container written",
		slog.Int("original_size", len(data)),
		slog.Int("encrypted_size", len(blob)))

	return Report{
		Output:        cfg.Output,
		OriginalSize:  len(data),
		EncryptedSize: len(blob),
		Cipher:        container.CipherName,
	}, nil
}

// WriteReport prints r for a human.
func WriteReport(out io.Writer, r Report) {
	fmt.Fprintln(out, "Data encrypted successfully.")
	fmt.Fprintf(out, "Encrypted file: %s\n", r.Output)
	fmt.Fprintf(out, "Original size: %d bytes\n", r.OriginalSize)
	fmt.Fprintf(out, "Encrypted size: %d bytes\n", r.EncryptedSize)
	fmt.Fprintf(out, "Using %s encryption\n", r.Cipher)
}
