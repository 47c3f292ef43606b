// Package watch reports changed material definition documents so a
// matsys.System can reload them.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/woozymasta/matsys"
)

const defaultExt = ".vmt"

// Options controls a Watcher.
type Options struct {
	// Ext is the document extension (default ".vmt").
	Ext string
	// Logger receives watcher diagnostics (default slog.Default()).
	Logger *slog.Logger
}

func (o *Options) normalize() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.Ext == "" {
		out.Ext = defaultExt
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}

	return out
}

// Watcher watches a material directory tree.
type Watcher struct {
	root   string
	opt    Options
	notify *fsnotify.Watcher
}

// New watches every directory under root.
func New(root string, opt *Options) (*Watcher, error) {
	n, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{root: filepath.Clean(root), opt: opt.normalize(), notify: n}
	if err := w.addTree(w.root); err != nil {
		_ = n.Close()
		return nil, err
	}

	return w, nil
}

// Run calls onChange with the logical material name of every changed
// document until ctx is done. It closes the watcher before returning.
func (w *Watcher) Run(ctx context.Context, onChange func(name string)) error {
	defer w.notify.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.notify.Events:
			if !ok {
				return nil
			}
			w.handle(ev, onChange)
		case err, ok := <-w.notify.Errors:
			if !ok {
				return nil
			}
			w.opt.Logger.Error("material watcher error", "root", w.root, "err", err)
		}
	}
}

// Close stops watching. Run returns once its channels close.
func (w *Watcher) Close() error {
	return w.notify.Close()
}

func (w *Watcher) handle(ev fsnotify.Event, onChange func(string)) {
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.opt.Logger.Warn("cannot watch new directory", "dir", ev.Name, "err", err)
			}
			return
		}
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}

	name, ok := w.NameFor(ev.Name)
	if !ok {
		return
	}
	w.opt.Logger.Debug("material document changed", "material", name, "op", ev.Op.String())
	onChange(name)
}

// NameFor returns the logical material name of a document path under root.
func (w *Watcher) NameFor(path string) (string, bool) {
	if !strings.EqualFold(filepath.Ext(path), w.opt.Ext) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))

	return matsys.NormalizeName(rel), true
}

// addTree adds dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}

		return w.notify.Add(path)
	})
}
