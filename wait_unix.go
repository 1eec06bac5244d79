//go:build !windows

package ipipe

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"
)

var errWatcherClosed = errors.New("filesystem watcher closed")

func waitPlatform(ctx context.Context, path string) error {
	// Fast path: already there.
	ok, err := fifoExists(path)
	if err != nil || ok {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return opError("wait", path, err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return opError("wait", path, err)
	}

	// The node may have appeared between the stat and the watch.
	ok, err = fifoExists(path)
	if err != nil || ok {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return opError("wait", path, ctx.Err())
		case err, open := <-watcher.Errors:
			if !open {
				return opError("wait", path, errWatcherClosed)
			}
			return opError("wait", path, err)
		case ev, open := <-watcher.Events:
			if !open {
				return opError("wait", path, errWatcherClosed)
			}
			if ev.Name != path || !ev.Op.Has(fsnotify.Create|fsnotify.Rename) {
				continue
			}
			ok, err := fifoExists(path)
			if err != nil || ok {
				return err
			}
		}
	}
}

func fifoExists(path string) (bool, error) {
	var st unix.Stat_t
	switch err := unix.Stat(path, &st); {
	case errors.Is(err, unix.ENOENT):
		return false, nil
	case err != nil:
		return false, opError("wait", path, err)
	case st.Mode&unix.S_IFMT != unix.S_IFIFO:
		return false, opError("wait", path, ErrNotPipe)
	}
	return true, nil
}
