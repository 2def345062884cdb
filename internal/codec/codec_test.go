package codec

import (
	"bytes"
	"errors"
	"testing"

	"changestore/internal/encryption"
)

func TestCodec_RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("key,value\nhello,world\n"), 200)

	tests := []struct {
		name         string
		compress     bool
		encrypt      bool
		wantEncoding string
	}{
		{name: "identity", wantEncoding: Identity},
		{name: "zstd", compress: true, wantEncoding: "zstd"},
		{name: "encrypted", encrypt: true, wantEncoding: "age"},
		{name: "zstd then encrypted", compress: true, encrypt: true, wantEncoding: "zstd+age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := encryption.NewTestEncryptor()
			var c *Codec
			var err error
			if tt.encrypt {
				c, err = New(tt.compress, enc)
			} else {
				c, err = New(tt.compress, nil)
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer c.Close()

			dc, _ := enc.Unlock("")
			c.Unlock(dc)

			data, encoding, err := c.Encode(payload)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if encoding != tt.wantEncoding {
				t.Errorf("encoding = %q, want %q", encoding, tt.wantEncoding)
			}
			if tt.compress && len(data) >= len(payload) {
				t.Errorf("compressed %d bytes to %d", len(payload), len(data))
			}

			got, err := c.Decode(data, encoding)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Error("round-trip mismatch")
			}
		})
	}
}

func TestCodec_DecodesOtherEncodings(t *testing.T) {
	writer, err := New(true, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer writer.Close()

	data, encoding, err := writer.Encode([]byte("written compressed"))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	reader, err := New(false, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer reader.Close()

	got, err := reader.Decode(data, encoding)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if string(got) != "written compressed" {
		t.Errorf("got %q", got)
	}
}

func TestCodec_LockedDecrypt(t *testing.T) {
	c, err := New(false, encryption.NewTestEncryptor())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	data, encoding, err := c.Encode([]byte("secret"))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if _, err := c.Decode(data, encoding); !errors.Is(err, ErrLocked) {
		t.Errorf("Decode() error = %v, want ErrLocked", err)
	}
}

func TestCodec_UnknownEncoding(t *testing.T) {
	c, err := New(false, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if _, err := c.Decode([]byte("x"), "zstd+rot13"); err == nil {
		t.Error("Decode() with unknown step should return error")
	}
}
