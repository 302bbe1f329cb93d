package container

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/scry-vault/internal/domain"
)

// Layout constants.
const (
	// IVSize is the GCM nonce length stored at the front of the container.
	IVSize = 16

	// TagSize is the GCM authentication tag length stored at the tail.
	TagSize = 16

	// Overhead is the number of bytes a container adds to its plaintext.
	Overhead = IVSize + TagSize

	// MinSize is the shortest valid container (empty ciphertext).
	MinSize = Overhead

	// CipherName names the container cipher in user-facing reports.
	CipherName = "AES-256-GCM"
)

// Codec encrypts and decrypts containers.
type Codec struct {
	params KeyParams
	random io.Reader
	logger *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithRandom replaces the IV source. Production code must keep the default
// crypto/rand reader; this exists so tests can pin the IV.
func WithRandom(r io.Reader) Option {
	return func(c *Codec) {
		c.random = r
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCodec creates a Codec using DefaultKeyParams.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		params: DefaultKeyParams(),
		random: rand.Reader,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "container_codec"))
	return c
}

var defaultCodec = NewCodec()

// Encrypt seals plaintext with the default codec.
func Encrypt(plaintext []byte, password string) ([]byte, error) {
	return defaultCodec.Encrypt(plaintext, password)
}

// Decrypt opens blob with the default codec.
func Decrypt(blob []byte, password string) ([]byte, error) {
	return defaultCodec.Decrypt(blob, password)
}

// Encrypt derives a key from password and returns iv || ciphertext || tag.
// A fresh IV is drawn for every call, so output differs between calls.
func (c *Codec) Encrypt(plaintext []byte, password string) ([]byte, error) {
	iv := make([]byte, IVSize, IVSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return nil, fmt.Errorf("generate IV: %w", err)
	}

	aead, err := c.newAEAD(password)
	if err != nil {
		return nil, err
	}

	// Seal appends ciphertext || tag to iv
	blob := aead.Seal(iv, iv, plaintext, nil)

	c.logger.Debug("container sealed",
		slog.Int("plaintext_bytes", len(plaintext)),
		slog.Int("container_bytes", len(blob)))
	return blob, nil
}

// Decrypt verifies and opens a container. It fails with domain.ErrFormat
// when blob is shorter than MinSize and with domain.ErrAuthentication when
// the tag does not verify. No plaintext is returned on failure.
func (c *Codec) Decrypt(blob []byte, password string) ([]byte, error) {
	iv, ciphertext, tag, err := Split(blob)
	if err != nil {
		return nil, err
	}

	aead, err := c.newAEAD(password)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		c.logger.Debug("container authentication failed",
			slog.Int("container_bytes", len(blob)))
		return nil, fmt.Errorf("open container: %w", domain.ErrAuthentication)
	}

	return plaintext, nil
}

// Split returns the IV, ciphertext and tag regions of blob. The returned
// slices alias blob.
func Split(blob []byte) (iv, ciphertext, tag []byte, err error) {
	if len(blob) < MinSize {
		return nil, nil, nil, domain.NewFormatError("",
			fmt.Sprintf("container is %d bytes, need at least %d", len(blob), MinSize), nil)
	}
	n := len(blob)
	return blob[:IVSize], blob[IVSize : n-TagSize], blob[n-TagSize:], nil
}

func (c *Codec) newAEAD(password string) (cipher.AEAD, error) {
	key := DeriveKey(password, c.params)
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}
