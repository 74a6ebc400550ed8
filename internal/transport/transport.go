// Package transport defines the contract an imaging host uses to read and
// write whole archive files at a named location, independent of the storage
// technology behind it.
package transport

import (
	"context"
	"fmt"
	"io"
	"iter"
)

// Mode is the operating direction of a transport or of a single Open.
type Mode byte

const (
	ModeRead  Mode = 'r'
	ModeWrite Mode = 'w'
)

// ParseMode accepts any mode string whose first character is 'r' or 'w'
// ("r", "rb", "w", "wb").
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty mode", ErrInvalidArgument)
	}
	switch m := Mode(s[0]); m {
	case ModeRead, ModeWrite:
		return m, nil
	default:
		return 0, fmt.Errorf("%w: mode %q", ErrInvalidArgument, s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	default:
		return fmt.Sprintf("Mode(%d)", byte(m))
	}
}

// File is a local, seekable handle returned by Open.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Name() string
}

// WalkStep is one directory visited by Walk: its path, the names of its
// subdirectories and the names of the files directly inside it.
type WalkStep struct {
	Root  string
	Dirs  []string
	Files []string
}

// Transport is the filesystem-like view a host has of a storage location.
// Implementations are not safe for concurrent use.
type Transport interface {
	// Walk yields directories under top, top-down. The sequence is finite;
	// an error is yielded at most once and ends it.
	Walk(ctx context.Context, top string) iter.Seq2[WalkStep, error]
	// IsFile reports whether path names an existing regular file.
	IsFile(ctx context.Context, path string) (bool, error)
	// Exists reports whether path names an existing file or directory.
	Exists(ctx context.Context, path string) (bool, error)
	// Open returns a local handle for path. mode starts with 'r' or 'w'.
	Open(ctx context.Context, path, mode string) (File, error)
	// Close finalizes pending writes and releases local resources.
	// Calling it more than once is harmless.
	Close(ctx context.Context) error
	// Info returns a one-line description of the object at path.
	Info(ctx context.Context, path string) (string, error)
}

// Options is the host's credentials/options mapping ("username", "password", ...).
type Options map[string]string

// Plugin is the descriptive metadata a transport publishes to the host.
type Plugin struct {
	Name        string
	Description string
	Authors     string
	Version     string
	URL         string
	Schemes     []string
	// MIMEType tells the host which archive codec to pair with the transport.
	MIMEType string
}
