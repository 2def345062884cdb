package vault

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"changestore/internal/store"
)

// testVaultContract runs the behaviour every store.Vault must share.
func testVaultContract(t *testing.T, newVault func(t *testing.T) store.Vault) {
	ctx := context.Background()

	t.Run("put and get content", func(t *testing.T) {
		v := newVault(t)

		tests := []struct {
			name    string
			key     string
			content string
		}{
			{name: "text", key: "ab12cd", content: "hello world"},
			{name: "empty", key: "e3b0c4", content: ""},
			{name: "large", key: "ff00aa", content: strings.Repeat("x", 10000)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := v.PutContent(ctx, tt.key, strings.NewReader(tt.content), int64(len(tt.content))); err != nil {
					t.Fatalf("PutContent() error = %v", err)
				}

				var buf bytes.Buffer
				if err := v.GetContent(ctx, tt.key, &buf); err != nil {
					t.Fatalf("GetContent() error = %v", err)
				}
				if buf.String() != tt.content {
					t.Errorf("GetContent() = %d bytes, want %d", buf.Len(), len(tt.content))
				}
			})
		}
	})

	t.Run("put is idempotent", func(t *testing.T) {
		v := newVault(t)
		for i := 0; i < 2; i++ {
			if err := v.PutContent(ctx, "aa11", strings.NewReader("same"), 4); err != nil {
				t.Fatalf("PutContent() #%d error = %v", i+1, err)
			}
		}
		var buf bytes.Buffer
		if err := v.GetContent(ctx, "aa11", &buf); err != nil || buf.String() != "same" {
			t.Errorf("GetContent() = %q, %v", buf.String(), err)
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		v := newVault(t)
		if err := v.PutContent(ctx, "bb22", strings.NewReader("hello"), 100); err == nil {
			t.Error("PutContent() with wrong size should return error")
		}
		if ok, _ := v.HasContent(ctx, "bb22"); ok {
			t.Error("content stored despite size mismatch")
		}
	})

	t.Run("missing content is not found", func(t *testing.T) {
		v := newVault(t)
		var buf bytes.Buffer
		err := v.GetContent(ctx, "cc33", &buf)
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("GetContent() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("has and delete", func(t *testing.T) {
		v := newVault(t)
		if err := v.PutContent(ctx, "dd44", strings.NewReader("x"), 1); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}

		ok, err := v.HasContent(ctx, "dd44")
		if err != nil || !ok {
			t.Fatalf("HasContent() = %v, %v; want true", ok, err)
		}

		if err := v.DeleteContent(ctx, "dd44"); err != nil {
			t.Fatalf("DeleteContent() error = %v", err)
		}
		if ok, _ := v.HasContent(ctx, "dd44"); ok {
			t.Error("HasContent() = true after delete")
		}
		if err := v.DeleteContent(ctx, "dd44"); err != nil {
			t.Errorf("deleting a missing key should succeed, got %v", err)
		}
	})

	t.Run("metadata with version", func(t *testing.T) {
		v := newVault(t)

		version, err := v.GetMetadataVersion(ctx, "store-1", "db")
		if err != nil || version != 0 {
			t.Fatalf("GetMetadataVersion() before put = %d, %v; want 0", version, err)
		}

		data := "sqlite bytes"
		if err := v.PutMetadata(ctx, "store-1", "db", strings.NewReader(data), int64(len(data)), 42); err != nil {
			t.Fatalf("PutMetadata() error = %v", err)
		}

		version, err = v.GetMetadataVersion(ctx, "store-1", "db")
		if err != nil || version != 42 {
			t.Errorf("GetMetadataVersion() = %d, %v; want 42", version, err)
		}

		var buf bytes.Buffer
		if err := v.GetMetadata(ctx, "store-1", "db", &buf); err != nil {
			t.Fatalf("GetMetadata() error = %v", err)
		}
		if buf.String() != data {
			t.Errorf("GetMetadata() = %q, want %q", buf.String(), data)
		}

		if err := v.GetMetadata(ctx, "store-2", "db", &buf); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("GetMetadata() for other store error = %v, want ErrNotFound", err)
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		if err := newVault(t).ValidateSetup(ctx); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}

func TestMemoryVault(t *testing.T) {
	testVaultContract(t, func(t *testing.T) store.Vault {
		return NewMemoryVault()
	})
}

func TestMemoryVault_ContentCount(t *testing.T) {
	v := NewMemoryVault()
	ctx := context.Background()
	for _, key := range []string{"a1", "b2", "a1"} {
		if err := v.PutContent(ctx, key, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}
	}
	if got := v.ContentCount(); got != 2 {
		t.Errorf("ContentCount() = %d, want 2", got)
	}
}

func TestFileSystemVault(t *testing.T) {
	testVaultContract(t, func(t *testing.T) store.Vault {
		v, err := NewFileSystemVault(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		return v
	})
}

func TestS3Vault(t *testing.T) {
	testVaultContract(t, func(t *testing.T) store.Vault {
		return newS3Vault(newFakeS3(), "bucket", "chs/")
	})
}
