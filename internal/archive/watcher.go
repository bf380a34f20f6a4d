package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// PayslipProcessor ingests one payslip file
type PayslipProcessor interface {
	ProcessPayslip(ctx context.Context, filename string, data []byte, contentType string) (*Payslip, error)
}

// Watcher ingests payslips dropped into an inbox directory. Files are
// processed once they stop changing, then moved into processed/ or failed/.
type Watcher struct {
	dir       string
	processor PayslipProcessor
	settle    time.Duration
}

// NewWatcher creates a Watcher for dir
func NewWatcher(dir string, processor PayslipProcessor) *Watcher {
	return NewWatcherWithSettle(dir, processor, 500*time.Millisecond)
}

// NewWatcherWithSettle creates a Watcher with a custom settle delay for testing
func NewWatcherWithSettle(dir string, processor PayslipProcessor, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	return &Watcher{dir: dir, processor: processor, settle: settle}
}

// Run watches the inbox until ctx is cancelled. Files already present are
// ingested first.
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0755); err != nil {
			return fmt.Errorf("creating %s directory: %w", sub, err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	slog.Info("Watching inbox", "dir", w.dir)

	// name -> last change; the zero time makes existing files eligible at once
	pending := map[string]time.Time{}
	existing, err := w.existing()
	if err != nil {
		return err
	}
	for _, name := range existing {
		pending[name] = time.Time{}
	}

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if filepath.Dir(ev.Name) != filepath.Clean(w.dir) || !isSupportedFile(name) {
				continue
			}
			pending[name] = time.Now()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watch error", "dir", w.dir, "error", err)
		case <-ticker.C:
			now := time.Now()
			var ready []string
			for name, changed := range pending {
				if now.Sub(changed) >= w.settle {
					ready = append(ready, name)
				}
			}
			sort.Strings(ready)
			for _, name := range ready {
				delete(pending, name)
				w.ingest(ctx, name)
			}
		}
	}
}

// existing lists the supported files already waiting in the inbox
func (w *Watcher) existing() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("reading inbox: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && isSupportedFile(e.Name()) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func (w *Watcher) ingest(ctx context.Context, name string) {
	path := filepath.Join(w.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		// Renamed or removed before it settled
		slog.Warn("Skipping inbox file", "file", name, "error", err)
		return
	}

	p, err := w.processor.ProcessPayslip(ctx, name, data, contentTypeFor(name, ""))
	dest := processedDir
	if err != nil {
		slog.Error("Failed to ingest payslip", "file", name, "error", err)
		dest = failedDir
	} else {
		slog.Info("Ingested payslip", "file", name, "id", p.ID)
	}

	if err := os.Rename(path, filepath.Join(w.dir, dest, name)); err != nil {
		slog.Error("Failed to move inbox file", "file", name, "dest", dest, "error", err)
	}
}

func isSupportedFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".pdf", ".heic", ".heif":
		return true
	}
	return false
}
