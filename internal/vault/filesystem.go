package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"changestore/internal/store"
)

// FileSystemVault stores payloads and metadata as files:
//
//	<root>/
//	  content/
//	    <ab>/<abcdef...>         (payloads, fanned out by the first two hex chars)
//	  metadata/
//	    <storeID>/<name>         (metadata items, e.g. "db" backups)
//	    <storeID>/<name>.version
type FileSystemVault struct {
	root        string
	contentDir  string
	metadataDir string
}

// NewFileSystemVault creates a filesystem vault rooted at the given path.
func NewFileSystemVault(root string) (*FileSystemVault, error) {
	contentDir := filepath.Join(root, "content")
	metadataDir := filepath.Join(root, "metadata")

	for _, dir := range []string{contentDir, metadataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create vault directory: %w", err)
		}
	}

	return &FileSystemVault{
		root:        root,
		contentDir:  contentDir,
		metadataDir: metadataDir,
	}, nil
}

func (v *FileSystemVault) contentPath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid content key %q", key)
	}
	if len(key) < 2 {
		return filepath.Join(v.contentDir, key), nil
	}
	return filepath.Join(v.contentDir, key[:2], key), nil
}

func (v *FileSystemVault) metadataPath(storeID, name string) string {
	return filepath.Join(v.metadataDir, storeID, name)
}

// PutContent stores a payload. Existing keys are left untouched.
func (v *FileSystemVault) PutContent(ctx context.Context, key string, r io.Reader, size int64) error {
	dest, err := v.contentPath(key)
	if err != nil {
		return err
	}

	if _, err := os.Stat(dest); err == nil {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	return writeFileAtomic(ctx, dest, r, size)
}

func (v *FileSystemVault) GetContent(ctx context.Context, key string, w io.Writer) error {
	src, err := v.contentPath(key)
	if err != nil {
		return err
	}
	return readFile(src, w, "content "+key)
}

func (v *FileSystemVault) HasContent(ctx context.Context, key string) (bool, error) {
	path, err := v.contentPath(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("checking content: %w", err)
	}
	return true, nil
}

func (v *FileSystemVault) DeleteContent(ctx context.Context, key string) error {
	path, err := v.contentPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting content: %w", err)
	}
	return nil
}

// PutMetadata stores a metadata item and its version marker.
func (v *FileSystemVault) PutMetadata(ctx context.Context, storeID, name string, r io.Reader, size int64, version uint64) error {
	dest := v.metadataPath(storeID, name)
	if err := writeFileAtomic(ctx, dest, r, size); err != nil {
		return err
	}

	versionData := strconv.FormatUint(version, 10)
	return writeFileAtomic(ctx, dest+".version", strings.NewReader(versionData), int64(len(versionData)))
}

func (v *FileSystemVault) GetMetadata(ctx context.Context, storeID, name string, w io.Writer) error {
	return readFile(v.metadataPath(storeID, name), w, fmt.Sprintf("metadata %q for store %s", name, storeID))
}

// GetMetadataVersion returns 0 if no version file exists.
func (v *FileSystemVault) GetMetadataVersion(ctx context.Context, storeID, name string) (uint64, error) {
	data, err := os.ReadFile(v.metadataPath(storeID, name) + ".version")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies that the vault directories exist.
func (v *FileSystemVault) ValidateSetup(ctx context.Context) error {
	for _, dir := range []string{v.root, v.contentDir, v.metadataDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFileAtomic writes r to dest through a temp file in the same directory
// and a rename.
func writeFileAtomic(ctx context.Context, dest string, r io.Reader, expectedSize int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func readFile(src string, w io.Writer, what string) error {
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", store.ErrNotFound, what)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

var _ store.Vault = (*FileSystemVault)(nil)
