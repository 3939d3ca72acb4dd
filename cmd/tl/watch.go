package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tourline/internal/engine"
)

const watchDebounce = 500 * time.Millisecond

func watchCmd() *cobra.Command {
	var initial bool
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Import exports as they appear in a directory",
		Long:  "Watches a directory and imports every new or rewritten file with a configured extension. Files already stored are reported as duplicates.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			logger := newLogger()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if initial {
					report, err := e.Import(ctx, engine.ImportOptions{Paths: []string{dir}, ActorID: viper.GetString("actor-id")})
					if err != nil {
						return err
					}
					if err := printImportReport(report); err != nil {
						return err
					}
				}
				return watchDir(ctx, e, dir, viper.GetString("actor-id"), logger)
			})
		},
	}
	cmd.Flags().BoolVar(&initial, "initial", false, "import the files already in the directory first")
	return cmd
}

func watchDir(ctx context.Context, e engine.Engine, dir, actorID string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log := logger.With("component", "watch", "dir", dir)
	fmt.Fprintf(os.Stderr, "Watching %s for exports... (Press Ctrl+C to exit)\n", dir)

	d := newDebouncer(watchDebounce, func(path string) {
		if ctx.Err() != nil {
			return
		}
		report, err := e.Import(ctx, engine.ImportOptions{Paths: []string{path}, ActorID: actorID})
		if err != nil {
			log.Error("import failed", "path", path, "error", err)
			return
		}
		for _, f := range report.Files {
			log.Info("imported", "path", f.Path, "status", f.Status, "tours", len(f.Imported), "duplicates", len(f.Duplicates))
			fmt.Printf("%s: %s (%d imported, %d duplicates)\n", f.Path, f.Status, len(f.Imported), len(f.Duplicates))
		}
	})
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !e.Accepts(event.Name) {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			// writers emit several events per file; import once it settles
			d.arm(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		}
	}
}

type pendingImport struct {
	timer *time.Timer
	gen   uint64
}

// debouncer runs fire once per path after events for it stop arriving.
type debouncer struct {
	delay   time.Duration
	fire    func(path string)
	mu      sync.Mutex
	wg      sync.WaitGroup
	gen     uint64
	pending map[string]pendingImport
}

func newDebouncer(delay time.Duration, fire func(path string)) *debouncer {
	return &debouncer{delay: delay, fire: fire, pending: map[string]pendingImport{}}
}

func (d *debouncer) arm(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[path]; ok && p.timer.Stop() {
		d.wg.Done()
	}
	d.gen++
	gen := d.gen
	d.wg.Add(1)
	d.pending[path] = pendingImport{gen: gen, timer: time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.release(path, gen)
		d.fire(path)
	})}
}

// release forgets path unless a later arm already replaced its timer.
func (d *debouncer) release(path string, gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[path]; ok && p.gen == gen {
		delete(d.pending, path)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	for path, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, path)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
