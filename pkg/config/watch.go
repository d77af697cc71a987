package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/wayneeseguin/logevents/pkg/logevents"
)

// watchDebounce collects the burst of events editors produce for one save
const watchDebounce = 100 * time.Millisecond

// Watch applies the configuration file at path to reg and re-applies it
// every time the file changes, until ctx is done. Load and apply failures
// are reported to the registry's status feed and leave the previous
// configuration in place. The observers of the last successful load are
// closed when Watch returns.
func Watch(ctx context.Context, path string, reg *logevents.Registry) error {
	fc := NewFileConfigurator(path)
	defer fc.Close()

	path = filepath.Clean(fc.Path())
	if err := fc.Configure(reg); err != nil {
		reg.Status().AddError(fc, "Failed to load configuration from "+path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	// The directory is watched since editors often replace the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", path)
	}

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			if err := fc.Configure(reg); err != nil {
				reg.Status().AddError(fc, "Failed to reload configuration from "+path, err)
				continue
			}
			reg.Status().AddInfo(fc, "Reloaded configuration from "+path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			reg.Status().AddError(fc, "Configuration watcher failed", err)
		}
	}
}
