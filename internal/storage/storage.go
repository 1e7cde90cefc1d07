// Package storage delivers exported documents to a local directory or an
// S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedTarget is returned for targets that are neither a path nor
// an s3:// or file:// URL.
var ErrUnsupportedTarget = errors.New("unsupported storage target")

// Sink stores one named document.
type Sink interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	// Location returns where name ends up, for log lines.
	Location(name string) string
}

// Target is a parsed destination.
type Target struct {
	Scheme string // "file" or "s3"
	Bucket string
	Path   string // directory for file, key prefix for s3
}

// ParseTarget accepts a plain directory, file:///dir or s3://bucket/prefix.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("%w: empty", ErrUnsupportedTarget)
	}
	if !strings.Contains(raw, "://") {
		return Target{Scheme: "file", Path: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrUnsupportedTarget, err)
	}
	switch u.Scheme {
	case "file":
		return Target{Scheme: "file", Path: filepath.FromSlash(u.Host + u.Path)}, nil
	case "s3":
		if u.Host == "" {
			return Target{}, fmt.Errorf("%w: %s has no bucket", ErrUnsupportedTarget, raw)
		}
		return Target{Scheme: "s3", Bucket: u.Host, Path: strings.Trim(u.Path, "/")}, nil
	default:
		return Target{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedTarget, u.Scheme)
	}
}

// Open builds the sink for a target. cfg is only consulted for s3.
func Open(ctx context.Context, t Target, cfg S3Config) (Sink, error) {
	switch t.Scheme {
	case "file":
		return &FS{Dir: t.Path}, nil
	case "s3":
		cfg.Bucket = t.Bucket
		cfg.Prefix = t.Path
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedTarget, t.Scheme)
	}
}

// FS writes documents below Dir.
type FS struct {
	Dir string
}

func (f *FS) Location(name string) string { return filepath.Join(f.Dir, name) }

func (f *FS) Put(_ context.Context, name string, data []byte, _ string) error {
	return WriteFileAtomic(f.Location(name), data)
}

// WriteFileAtomic creates the parent directories of path, writes data to a
// temporary file next to it and renames it into place.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
