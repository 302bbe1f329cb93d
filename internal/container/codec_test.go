package container

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"testing"

	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioJSON = `{"cards":[{"question":"Q","choices":["a","b"],"correct":1,"explanation":"E"}]}`

// Containers written by the original producer with IV 00..0f and password "pw1".
const (
	producerVectorHex = "000102030405060708090a0b0c0d0e0f" +
		"f552cc41efe1ba30cf9f4098e04d36ab6e43d83df694b0b1b7d555ee140c0ddc" +
		"76a5318675544ad5b2a4bf781512f0d68fe09010929cb1b2284390cfb816393b" +
		"21f339386c92f37a3a470e52dc088e8bf2fb45b7fd65fd5e" +
		"85a3a45635b1"
	producerEmptyVectorHex = "000102030405060708090a0b0c0d0e0f" +
		"a49b142189a6607345f9de934c8b9361"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func fixedIV(t *testing.T) *bytes.Reader {
	return bytes.NewReader(mustHex(t, "000102030405060708090a0b0c0d0e0f"))
}

// fastCodec keeps the layout and cipher but uses a single PBKDF2 iteration so
// exhaustive tamper tests stay quick.
func fastCodec() *Codec {
	return &Codec{
		params: KeyParams{Salt: []byte(Salt), Iterations: 1, KeyLength: KeySize},
		random: rand.Reader,
		logger: slog.Default(),
	}
}

func TestEncryptMatchesProducerVector(t *testing.T) {
	t.Parallel()

	codec := NewCodec(WithRandom(fixedIV(t)))
	blob, err := codec.Encrypt([]byte(scenarioJSON), "pw1")
	require.NoError(t, err)
	assert.Equal(t, producerVectorHex, hex.EncodeToString(blob))
}

func TestDecryptProducerVector(t *testing.T) {
	t.Parallel()

	plaintext, err := Decrypt(mustHex(t, producerVectorHex), "pw1")
	require.NoError(t, err)
	assert.Equal(t, scenarioJSON, string(plaintext))

	empty, err := Decrypt(mustHex(t, producerEmptyVectorHex), "pw1")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// Scenario A: encrypt then decrypt with the right and the wrong password.
func TestScenarioRoundTripAndWrongPassword(t *testing.T) {
	t.Parallel()

	blob, err := Encrypt([]byte(scenarioJSON), "pw1")
	require.NoError(t, err)
	assert.Len(t, blob, len(scenarioJSON)+Overhead)

	plaintext, err := Decrypt(blob, "pw1")
	require.NoError(t, err)
	assert.Equal(t, scenarioJSON, string(plaintext))

	plaintext, err = Decrypt(blob, "pw2")
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.NotErrorIs(t, err, domain.ErrFormat)
	assert.Nil(t, plaintext)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	codec := fastCodec()
	inputs := [][]byte{
		{},
		{0x00},
		[]byte("hello"),
		bytes.Repeat([]byte{0xff}, 4096),
		[]byte("ünïcødé ✓"),
	}
	passwords := []string{"", "pw", "correct horse battery staple", "пароль"}

	for _, input := range inputs {
		for _, password := range passwords {
			blob, err := codec.Encrypt(input, password)
			require.NoError(t, err)
			require.Len(t, blob, len(input)+Overhead)

			out, err := codec.Decrypt(blob, password)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(input, out), "round trip mismatch for %q", password)
		}
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	t.Parallel()

	codec := fastCodec()
	a, err := codec.Encrypt([]byte(scenarioJSON), "pw1")
	require.NoError(t, err)
	b, err := codec.Encrypt([]byte(scenarioJSON), "pw1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a[:IVSize], b[:IVSize], "each call must draw a fresh IV")
}

func TestDecryptRejectsEveryFlippedBit(t *testing.T) {
	t.Parallel()

	codec := fastCodec()
	blob, err := codec.Encrypt([]byte(scenarioJSON), "pw1")
	require.NoError(t, err)

	for i := range blob {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), blob...)
			tampered[i] ^= 1 << bit

			out, err := codec.Decrypt(tampered, "pw1")
			if !errors.Is(err, domain.ErrAuthentication) {
				t.Fatalf("byte %d bit %d: expected authentication error, got %v", i, bit, err)
			}
			if out != nil {
				t.Fatalf("byte %d bit %d: expected no plaintext on failure", i, bit)
			}
		}
	}
}

func TestDecryptTooShort(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 16, MinSize - 1} {
		_, err := Decrypt(make([]byte, n), "pw1")
		assert.ErrorIs(t, err, domain.ErrFormat, "length %d", n)
		assert.NotErrorIs(t, err, domain.ErrAuthentication, "length %d", n)
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	blob := mustHex(t, producerVectorHex)
	iv, ciphertext, tag, err := Split(blob)
	require.NoError(t, err)

	assert.Equal(t, "000102030405060708090a0b0c0d0e0f", hex.EncodeToString(iv))
	assert.Equal(t, "8e8bf2fb45b7fd65fd5e85a3a45635b1", hex.EncodeToString(tag))
	assert.Len(t, ciphertext, len(scenarioJSON))

	_, _, _, err = Split(make([]byte, MinSize-1))
	assert.ErrorIs(t, err, domain.ErrFormat)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestEncryptRandomFailure(t *testing.T) {
	t.Parallel()

	codec := NewCodec(WithRandom(failingReader{}))
	blob, err := codec.Encrypt([]byte("x"), "pw1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "generate IV")
	assert.Nil(t, blob)
}
