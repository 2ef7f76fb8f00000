// Package storage reads raw input files from, and writes table files to, either a
// local directory or an S3 bucket prefix. Keys are always slash separated and
// relative to the store root.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// Object is a listed file.
type Object struct {
	Key  string
	Size int64
}

// Source lists and opens input files.
type Source interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Sink receives table files. Clear removes everything under prefix; Put copies a
// local file to key, replacing any existing object.
type Sink interface {
	Clear(ctx context.Context, prefix string) error
	Put(ctx context.Context, key, localPath string) error
}

// Store is both a Source and a Sink.
type Store interface {
	Source
	Sink
	// URI renders key as a location string for logs.
	URI(key string) string
}

// Location is a parsed store root.
type Location struct {
	Scheme string // "s3" or "file"
	Bucket string
	Prefix string
	Path   string
}

// IsS3 reports whether the location points into a bucket.
func (l Location) IsS3() bool {
	return l.Scheme == "s3"
}

// ParseLocation accepts s3://, s3a:// and s3n:// URIs, file:// URIs and plain paths.
func ParseLocation(root string) (Location, error) {
	if root == "" {
		return Location{}, fmt.Errorf("empty storage root")
	}
	if !strings.Contains(root, "://") {
		return Location{Scheme: "file", Path: root}, nil
	}

	u, err := url.Parse(root)
	if err != nil {
		return Location{}, fmt.Errorf("invalid storage root %q: %w", root, err)
	}
	switch u.Scheme {
	case "s3", "s3a", "s3n":
		if u.Host == "" {
			return Location{}, fmt.Errorf("storage root %q has no bucket", root)
		}
		return Location{
			Scheme: "s3",
			Bucket: u.Host,
			Prefix: strings.Trim(u.Path, "/"),
		}, nil
	case "file":
		return Location{Scheme: "file", Path: u.Path}, nil
	default:
		return Location{}, fmt.Errorf("unsupported storage scheme %q in %q", u.Scheme, root)
	}
}

// JoinKey joins key segments with slashes, dropping empty ones.
func JoinKey(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return path.Join(kept...)
}

// dirPrefix returns prefix with exactly one trailing slash, or "" for the root.
func dirPrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
