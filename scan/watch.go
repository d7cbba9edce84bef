package scan

import (
	"context"
	"os"
	"time"
)

// Watch polls paths every interval and reanalyzes the Java files that
// appeared or changed since the previous poll. The first poll analyzes
// everything. onChange receives the summary of each rerun. Watch returns
// when ctx is done.
func (s *Scanner) Watch(ctx context.Context, paths []string, interval time.Duration, onChange func(*Summary)) error {
	if interval <= 0 {
		interval = time.Second
	}
	w := &watcher{scanner: s, paths: paths, modTimes: make(map[string]time.Time)}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.poll(ctx, onChange); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Errorf("watch: %s", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type watcher struct {
	scanner  *Scanner
	paths    []string
	modTimes map[string]time.Time
}

// changed returns the files that are new or were modified since the last
// call, and forgets the ones that disappeared.
func (w *watcher) changed() ([]string, error) {
	files, err := w.scanner.Files(w.paths)
	if err != nil {
		return nil, err
	}
	current := make(map[string]bool, len(files))
	var changed []string
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		current[path] = true
		lastMod, known := w.modTimes[path]
		if !known || info.ModTime().After(lastMod) {
			w.modTimes[path] = info.ModTime()
			changed = append(changed, path)
		}
	}
	for path := range w.modTimes {
		if !current[path] {
			delete(w.modTimes, path)
			log.Debugf("watch: %s removed", path)
		}
	}
	return changed, nil
}

func (w *watcher) poll(ctx context.Context, onChange func(*Summary)) error {
	changed, err := w.changed()
	if err != nil || len(changed) == 0 {
		return err
	}
	log.Infof("watch: %d files changed", len(changed))
	summary, err := w.scanner.Run(ctx, changed)
	if err != nil {
		return err
	}
	onChange(summary)
	return nil
}
