package r2client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"time"

	"github.com/klauspost/compress/zstd"
)

const archiveContentType = "application/zstd"

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Archive keeps zstd-compressed copies of imported catalog files so an
// import can be audited or replayed later.
type Archive struct {
	client *Client
	prefix string
}

// NewArchive stores archives under prefix (for example "imports/").
func NewArchive(client *Client, prefix string) *Archive {
	return &Archive{client: client, prefix: prefix}
}

// ArchiveKey builds the object key for a file imported at t. Keys sort by
// time.
func (a *Archive) ArchiveKey(filename string, t time.Time) string {
	name := unsafeKeyChars.ReplaceAllString(path.Base(filename), "_")
	if name == "" || name == "." || name == "_" {
		name = "catalog"
	}
	return fmt.Sprintf("%s%s_%s.zst", a.prefix, t.UTC().Format("20060102T150405Z"), name)
}

// Store compresses data and uploads it. It returns the object key.
func (a *Archive) Store(ctx context.Context, filename string, data []byte, t time.Time) (string, error) {
	compressed, err := Compress(data)
	if err != nil {
		return "", err
	}
	key := a.ArchiveKey(filename, t)
	if _, err := a.client.Put(ctx, key, bytes.NewReader(compressed), archiveContentType); err != nil {
		return "", err
	}
	return key, nil
}

// Fetch downloads and decompresses one archive.
func (a *Archive) Fetch(ctx context.Context, key string) ([]byte, error) {
	body, _, err := a.client.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return Decompress(body)
}

// Latest returns the key of the newest archive, or ErrNotFound.
func (a *Archive) Latest(ctx context.Context) (string, error) {
	keys, err := a.client.List(ctx, a.prefix)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", ErrNotFound
	}
	latest := keys[0]
	for _, k := range keys[1:] {
		if k > latest {
			latest = k
		}
	}
	return latest, nil
}

// Compress encodes data with zstd.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("compress: create encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress decodes a zstd stream.
func Decompress(r io.Reader) ([]byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decompress: create decoder: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return data, nil
}
