// Package codec encodes snapshot payloads for the vault: optional zstd
// compression followed by optional encryption.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"changestore/internal/store"
)

// Encoding names persisted with each snapshot. Combined encodings list the
// steps in the order they were applied.
const (
	Identity = "identity"
	Zstd     = "zstd"
	Age      = "age"
)

// ErrLocked is returned when decoding an encrypted payload before the store was
// unlocked.
var ErrLocked = errors.New("snapshot is encrypted and the store is locked")

// Codec implements store.Codec.
type Codec struct {
	compress  bool
	encryptor store.Encryptor

	mu      sync.RWMutex
	decrypt store.DecryptionContext

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var _ store.Codec = (*Codec)(nil)

// New creates a Codec. A nil encryptor stores payloads in the clear.
func New(compress bool, encryptor store.Encryptor) (*Codec, error) {
	// EncodeAll and DecodeAll are safe for concurrent use on one instance.
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Codec{
		compress:  compress,
		encryptor: encryptor,
		encoder:   encoder,
		decoder:   decoder,
	}, nil
}

// Unlock installs the decryption context used for encrypted payloads.
func (c *Codec) Unlock(dc store.DecryptionContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decrypt = dc
}

// Encode applies the configured steps to plain and names the result.
func (c *Codec) Encode(plain []byte) ([]byte, string, error) {
	data := plain
	var steps []string

	if c.compress {
		data = c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
		steps = append(steps, Zstd)
	}

	if c.encryptor != nil {
		var buf bytes.Buffer
		if err := c.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return nil, "", fmt.Errorf("encrypting payload: %w", err)
		}
		data = buf.Bytes()
		steps = append(steps, Age)
	}

	if len(steps) == 0 {
		return data, Identity, nil
	}
	return data, strings.Join(steps, "+"), nil
}

// Decode reverses the steps named by encoding. It decodes payloads written
// with any encoding, not only the one currently configured.
func (c *Codec) Decode(data []byte, encoding string) ([]byte, error) {
	if encoding == "" || encoding == Identity {
		return data, nil
	}

	steps := strings.Split(encoding, "+")
	for i := len(steps) - 1; i >= 0; i-- {
		var err error
		switch steps[i] {
		case Zstd:
			data, err = c.decoder.DecodeAll(data, nil)
			if err != nil {
				return nil, fmt.Errorf("decompressing payload: %w", err)
			}
		case Age:
			data, err = c.decryptPayload(data)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown encoding step %q in %q", steps[i], encoding)
		}
	}
	return data, nil
}

func (c *Codec) decryptPayload(data []byte) ([]byte, error) {
	c.mu.RLock()
	dc := c.decrypt
	c.mu.RUnlock()

	if dc == nil {
		return nil, ErrLocked
	}

	var buf bytes.Buffer
	if err := dc.Decrypt(bytes.NewReader(data), &buf); err != nil {
		return nil, fmt.Errorf("decrypting payload: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases the zstd encoder and decoder.
func (c *Codec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
