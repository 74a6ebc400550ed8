// Package filetransport serves the transport contract from the local
// filesystem (scheme "file").
package filetransport

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/imagedata-s3/internal/transport"
)

var Plugin = transport.Plugin{
	Name:        "file",
	Description: "Read and write archives on the local filesystem.",
	Authors:     "imagedata-s3 contributors",
	Version:     "1.0.0",
	URL:         "https://github.com/yourorg/imagedata-s3",
	Schemes:     []string{"file"},
}

// Transport opens files under root. Absolute paths are used as given;
// relative paths are joined to root.
type Transport struct {
	root    string
	mode    transport.Mode
	log     *zap.Logger
	closed  bool
	handles []*os.File
}

var _ transport.Transport = (*Transport)(nil)

// New returns a transport rooted at root. In read mode root must exist; in
// write mode it is created.
func New(root string, mode transport.Mode, log *zap.Logger) (*Transport, error) {
	if root == "" {
		root = "."
	}
	if log == nil {
		log = zap.NewNop()
	}
	switch mode {
	case transport.ModeRead:
		if _, err := os.Stat(root); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", transport.ErrNotFound, root)
			}
			return nil, fmt.Errorf("%w: %w", transport.ErrIO, err)
		}
	case transport.ModeWrite:
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", transport.ErrIO, err)
		}
	default:
		return nil, fmt.Errorf("%w: mode %v", transport.ErrInvalidArgument, mode)
	}
	return &Transport{root: filepath.Clean(root), mode: mode, log: log}, nil
}

// Factory adapts New to the registry. The locator's netloc is ignored:
// file:///data/x and file://localhost/data/x name the same directory.
func Factory(log *zap.Logger) transport.Factory {
	return func(_ context.Context, _, root string, mode transport.Mode, _ transport.Options) (transport.Transport, error) {
		return New(root, mode, log)
	}
}

func (t *Transport) local(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(t.root, p)
}

func (t *Transport) Exists(_ context.Context, p string) (bool, error) {
	_, err := os.Stat(t.local(p))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (t *Transport) IsFile(_ context.Context, p string) (bool, error) {
	st, err := os.Stat(t.local(p))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return st.Mode().IsRegular(), nil
}

func (t *Transport) Info(_ context.Context, p string) (string, error) {
	lp := t.local(p)
	st, err := os.Stat(lp)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", transport.ErrNotFound, lp)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("file://%s size=%d mode=%v modified=%s",
		filepath.ToSlash(lp), st.Size(), st.Mode(), st.ModTime().UTC().Format(time.RFC3339)), nil
}

func (t *Transport) Open(_ context.Context, p, mode string) (transport.File, error) {
	m, err := transport.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	if t.closed {
		return nil, fmt.Errorf("%w: transport is closed", transport.ErrInvalidState)
	}
	lp := t.local(p)
	var f *os.File
	if m == transport.ModeWrite {
		if t.mode != transport.ModeWrite {
			return nil, fmt.Errorf("%w: transport for %s is read-only", transport.ErrInvalidState, t.root)
		}
		if err := os.MkdirAll(filepath.Dir(lp), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", transport.ErrIO, err)
		}
		f, err = os.OpenFile(lp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	} else {
		f, err = os.Open(lp)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", transport.ErrNotFound, lp)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transport.ErrIO, err)
	}
	t.handles = append(t.handles, f)
	t.log.Debug("opened", zap.String("path", lp), zap.Stringer("mode", m))
	return f, nil
}

// Close closes any handles the caller left open.
func (t *Transport) Close(context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	var errs []error
	for _, f := range t.handles {
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	t.handles = nil
	return errors.Join(errs...)
}

// Walk yields directories top-down in lexical order; a missing top yields nothing.
func (t *Transport) Walk(_ context.Context, top string) iter.Seq2[transport.WalkStep, error] {
	return func(yield func(transport.WalkStep, error) bool) {
		dir := t.local(top)
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				yield(transport.WalkStep{}, err)
			}
			return
		}
		walkDir(dir, yield)
	}
}

func walkDir(dir string, yield func(transport.WalkStep, error) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		yield(transport.WalkStep{}, err)
		return false
	}
	step := transport.WalkStep{Root: dir}
	for _, e := range entries {
		if e.IsDir() {
			step.Dirs = append(step.Dirs, e.Name())
		} else {
			step.Files = append(step.Files, e.Name())
		}
	}
	sort.Strings(step.Dirs)
	sort.Strings(step.Files)
	if !yield(step, nil) {
		return false
	}
	for _, d := range step.Dirs {
		if !walkDir(filepath.Join(dir, d), yield) {
			return false
		}
	}
	return true
}
