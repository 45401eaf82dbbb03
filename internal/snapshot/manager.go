// Package snapshot backs up the SQLite database to R2 and restores it on a
// fresh volume. Snapshots are single zstd-compressed objects that are
// overwritten in place.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/r2client"
)

// ErrNotFound means no snapshot has been uploaded yet.
var ErrNotFound = errors.New("snapshot: not found")

// ObjectStore is the subset of *r2client.Client the manager uses.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Source writes a consistent copy of the live database to path.
type Source interface {
	SnapshotTo(ctx context.Context, path string) error
}

// Manager uploads and downloads database snapshots.
type Manager struct {
	store   ObjectStore
	key     string
	tempDir string
	log     *logger.Logger
}

// New creates a Manager storing the snapshot under key. An empty tempDir
// uses os.TempDir.
func New(store ObjectStore, key, tempDir string, log *logger.Logger) *Manager {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Manager{store: store, key: key, tempDir: tempDir, log: log.WithModule("snapshot")}
}

// Key returns the object key of the snapshot.
func (m *Manager) Key() string { return m.key }

// Upload snapshots src, compresses it and replaces the stored snapshot.
// It returns the compressed size.
func (m *Manager) Upload(ctx context.Context, src Source) (int64, error) {
	start := time.Now()
	rawPath := filepath.Join(m.tempDir, fmt.Sprintf("snapshot_%d.db", time.Now().UnixNano()))
	if err := src.SnapshotTo(ctx, rawPath); err != nil {
		return 0, fmt.Errorf("snapshot: create: %w", err)
	}
	defer os.Remove(rawPath)

	compressedPath := rawPath + ".zst"
	size, err := compressFile(rawPath, compressedPath)
	if err != nil {
		return 0, fmt.Errorf("snapshot: compress: %w", err)
	}
	defer os.Remove(compressedPath)

	f, err := os.Open(compressedPath)
	if err != nil {
		return 0, fmt.Errorf("snapshot: open compressed: %w", err)
	}
	defer f.Close()

	if _, err := m.store.Put(ctx, m.key, f, "application/zstd"); err != nil {
		return 0, fmt.Errorf("snapshot: upload: %w", err)
	}
	m.log.WithField("key", m.key).
		WithField("bytes", size).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		InfoContext(ctx, "Database snapshot uploaded")
	return size, nil
}

// Restore downloads the snapshot into destPath. The file is written next to
// destPath and renamed into place so a failed download leaves nothing behind.
func (m *Manager) Restore(ctx context.Context, destPath string) error {
	body, _, err := m.store.Get(ctx, m.key)
	if err != nil {
		if errors.Is(err, r2client.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("snapshot: download: %w", err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("snapshot: create directory: %w", err)
	}
	tmpPath := destPath + ".restore"
	if err := decompressTo(body, tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: decompress: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: install: %w", err)
	}
	m.log.WithField("key", m.key).WithField("path", destPath).InfoContext(ctx, "Database restored from snapshot")
	return nil
}

// RestoreIfMissing restores the snapshot only when destPath does not exist.
// It reports whether a snapshot was installed.
func (m *Manager) RestoreIfMissing(ctx context.Context, destPath string) (bool, error) {
	if _, err := os.Stat(destPath); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("snapshot: stat %s: %w", destPath, err)
	}
	if err := m.Restore(ctx, destPath); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func compressFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(enc, in); err != nil {
		_ = enc.Close()
		return 0, err
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	info, err := out.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func decompressTo(r io.Reader, dst string) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, dec); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
