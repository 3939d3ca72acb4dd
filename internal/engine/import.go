package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tourline/internal/domain"
	"tourline/internal/events"
	"tourline/internal/importer"
	"tourline/internal/metrics"
)

type ImportOptions struct {
	Paths   []string
	ActorID string
}

// FileReport is the per-file part of an ImportReport.
type FileReport struct {
	Path              string          `json:"path"`
	Status            string          `json:"status"`
	Imported          []domain.TourID `json:"imported,omitempty"`
	Duplicates        []domain.TourID `json:"duplicates,omitempty"`
	CreatedTags       []string        `json:"created_tags,omitempty"`
	CreatedTourType   string          `json:"created_tour_type,omitempty"`
	UnresolvedSensors []int64         `json:"unresolved_sensors,omitempty"`
	Error             string          `json:"error,omitempty"`
}

type ImportReport struct {
	Run                   domain.ImportRun `json:"run"`
	Files                 []FileReport     `json:"files"`
	FileProducedValidData bool             `json:"file_produced_valid_data"`
	NewTagWasCreated      bool             `json:"new_tag_was_created"`
	NewTypeWasCreated     bool             `json:"new_type_was_created"`

	sink *importer.Sink
}

// Tours returns the tours stored by the run, in import order.
func (r ImportReport) Tours() []*domain.Tour {
	if r.sink == nil {
		return nil
	}
	return r.sink.Tours()
}

// Import imports every file named by opts.Paths. Directories are walked for files
// with a configured extension; files named explicitly are always tried. Each file
// commits on its own, so a failing file does not undo the others.
func (e Engine) Import(ctx context.Context, opts ImportOptions) (ImportReport, error) {
	if len(opts.Paths) == 0 {
		return ImportReport{}, errors.New("at least one path is required")
	}
	unlock := e.lock()
	defer unlock()

	b, err := e.startBatch(ctx, opts.ActorID)
	if err != nil {
		return ImportReport{}, err
	}
	files, missing := collectFiles(opts.Paths, e.extensions())
	for _, m := range missing {
		b.fail(ctx, e, m.path, m.err)
	}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return b.finish(ctx, e), err
		}
		b.importPath(ctx, e, path)
	}
	return b.finish(ctx, e), nil
}

// ImportReader imports a single export read from r, as uploaded under name.
func (e Engine) ImportReader(ctx context.Context, name string, r io.Reader, actorID string) (ImportReport, error) {
	unlock := e.lock()
	defer unlock()

	b, err := e.startBatch(ctx, actorID)
	if err != nil {
		return ImportReport{}, err
	}
	b.importOne(ctx, e, name, r)
	return b.finish(ctx, e), nil
}

type batch struct {
	actorID string
	report  ImportReport
	sink    *importer.Sink
}

func (e Engine) startBatch(ctx context.Context, actorID string) (*batch, error) {
	run := domain.ImportRun{
		ID:        uuid.NewString(),
		ActorID:   actorOrDefault(actorID),
		StartedAt: e.nowString(),
	}
	if err := e.Repo.InsertRun(ctx, run); err != nil {
		return nil, fmt.Errorf("insert import run: %w", err)
	}
	sink := importer.NewSink()
	return &batch{
		actorID: run.ActorID,
		report:  ImportReport{Run: run, sink: sink},
		sink:    sink,
	}, nil
}

func (b *batch) finish(ctx context.Context, e Engine) ImportReport {
	run := &b.report.Run
	run.FinishedAt = e.nowString()
	// the run row is bookkeeping; the files already committed on their own
	if err := e.Repo.FinishRun(context.WithoutCancel(ctx), *run); err != nil {
		e.logger().Error("finish import run", "run_id", run.ID, "error", err)
	}
	b.report.FileProducedValidData = b.sink.FileProducedValidData
	b.report.NewTagWasCreated = b.sink.NewTagWasCreated
	b.report.NewTypeWasCreated = b.sink.NewTypeWasCreated
	return b.report
}

func (b *batch) importPath(ctx context.Context, e Engine, path string) {
	f, err := os.Open(path)
	if err != nil {
		b.fail(ctx, e, path, fmt.Errorf("open: %w", err))
		return
	}
	defer f.Close()
	b.importOne(ctx, e, path, f)
}

// importOne runs one file in its own transaction. Tours, registry entries and
// events of the file become visible together or not at all.
func (b *batch) importOne(ctx context.Context, e Engine, path string, r io.Reader) {
	ctx, span := tracer.Start(ctx, "import.file", trace.WithAttributes(
		attribute.String("tourline.path", path),
		attribute.String("tourline.run_id", b.report.Run.ID),
	))
	defer span.End()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		b.fail(ctx, e, path, fmt.Errorf("begin: %w", err))
		recordSpanError(span, err)
		return
	}
	defer tx.Rollback()

	fileSink := importer.NewSink()
	res := e.importerFor(tx).Import(ctx, path, r, fileSink)
	if res.Status == importer.StatusFailed {
		_ = tx.Rollback()
		b.fail(ctx, e, path, res.Err)
		recordSpanError(span, res.Err)
		return
	}

	rep := FileReport{Path: path, Status: string(res.Status)}
	runID := b.report.Run.ID
	persist := func() error {
		for _, o := range res.Outcomes {
			if err := b.persistOutcome(ctx, e, tx, path, o, &rep); err != nil {
				return err
			}
		}
		return e.Events.Append(ctx, tx, events.TypeImportFile, runID, "file", path, b.actorID, events.EventPayload{
			"status":     rep.Status,
			"imported":   len(rep.Imported),
			"duplicates": len(rep.Duplicates),
		})
	}
	if err := persist(); err != nil {
		_ = tx.Rollback()
		b.fail(ctx, e, path, err)
		recordSpanError(span, err)
		return
	}
	if err := tx.Commit(); err != nil {
		b.fail(ctx, e, path, fmt.Errorf("commit: %w", err))
		recordSpanError(span, err)
		return
	}
	b.sink.Merge(fileSink)

	run := &b.report.Run
	run.Files++
	if res.Status == importer.StatusSkipped {
		run.Skipped++
		e.logger().Debug("skipped file without export signature", "path", path)
	}
	run.Imported += len(rep.Imported)
	run.Duplicates += len(rep.Duplicates)
	b.report.Files = append(b.report.Files, rep)

	metrics.RecordFile(rep.Status)
	metrics.RecordTours(importer.OutcomeImported.String(), len(rep.Imported))
	metrics.RecordTours(importer.OutcomeDuplicate.String(), len(rep.Duplicates))
	metrics.RecordCreated("tag", len(rep.CreatedTags))
	if rep.CreatedTourType != "" {
		metrics.RecordCreated("tour_type", 1)
	}
	metrics.RecordUnresolvedSensors(len(rep.UnresolvedSensors))

	span.SetAttributes(
		attribute.String("tourline.status", rep.Status),
		attribute.Int("tourline.imported", len(rep.Imported)),
		attribute.Int("tourline.duplicates", len(rep.Duplicates)),
	)
}

func (b *batch) persistOutcome(ctx context.Context, e Engine, tx *sql.Tx, path string, o importer.Outcome, rep *FileReport) error {
	runID := b.report.Run.ID
	tourID := strconv.FormatInt(int64(o.TourID), 10)
	switch o.Kind {
	case importer.OutcomeDuplicate:
		rep.Duplicates = append(rep.Duplicates, o.TourID)
		return e.Events.Append(ctx, tx, events.TypeTourDuplicate, runID, "tour", tourID, b.actorID, events.EventPayload{"path": path})
	case importer.OutcomeImported:
	default:
		return nil
	}

	for _, tag := range o.CreatedTags {
		rep.CreatedTags = append(rep.CreatedTags, tag.Name)
		if err := e.Events.Append(ctx, tx, events.TypeTagCreated, runID, "tag", tag.ID, b.actorID, events.EventPayload{"name": tag.Name}); err != nil {
			return err
		}
	}
	if o.CreatedType != nil {
		rep.CreatedTourType = o.CreatedType.Name
		if err := e.Events.Append(ctx, tx, events.TypeTourTypeCreated, runID, "tour_type", o.CreatedType.ID, b.actorID, events.EventPayload{"name": o.CreatedType.Name}); err != nil {
			return err
		}
	}
	if err := e.Repo.InsertTour(ctx, tx, o.Tour, path, runID, e.nowString()); err != nil {
		return fmt.Errorf("insert tour %d: %w", o.TourID, err)
	}
	rep.Imported = append(rep.Imported, o.TourID)
	payload := events.EventPayload{"path": path, "title": o.Tour.Title}
	if o.Tour.TourType != nil {
		payload["tour_type"] = o.Tour.TourType.Name
	}
	if err := e.Events.Append(ctx, tx, events.TypeTourImported, runID, "tour", tourID, b.actorID, payload); err != nil {
		return err
	}
	for _, id := range o.UnresolvedSensors {
		rep.UnresolvedSensors = append(rep.UnresolvedSensors, id)
		if err := e.Events.Append(ctx, tx, events.TypeSensorUnknown, runID, "tour", tourID, b.actorID, events.EventPayload{"sensor_id": id, "path": path}); err != nil {
			return err
		}
	}
	return nil
}

// fail records a file that contributed nothing. The failure event is written in
// its own transaction because the file's transaction was rolled back.
func (b *batch) fail(ctx context.Context, e Engine, path string, err error) {
	e.logger().Error("import file failed", "path", path, "error", err)
	run := &b.report.Run
	run.Files++
	run.Failed++
	b.report.Files = append(b.report.Files, FileReport{Path: path, Status: string(importer.StatusFailed), Error: err.Error()})
	metrics.RecordFile(string(importer.StatusFailed))
	if aerr := e.Events.AppendStandalone(context.WithoutCancel(ctx), events.TypeImportFailed, run.ID, "file", path, b.actorID,
		events.EventPayload{"error": err.Error()}); aerr != nil {
		e.logger().Error("record import failure", "path", path, "error", aerr)
	}
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (e Engine) extensions() []string {
	if e.Config == nil {
		return nil
	}
	return e.Config.Import.Extensions
}

// Accepts reports whether a directory walk would pick up path.
func (e Engine) Accepts(path string) bool {
	return hasExtension(path, e.extensions())
}

type missingPath struct {
	path string
	err  error
}

// collectFiles expands directories into the files carrying one of exts. An empty
// exts accepts every file.
func collectFiles(paths, exts []string) ([]string, []missingPath) {
	var (
		files   []string
		missing []missingPath
	)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			missing = append(missing, missingPath{path: p, err: err})
			continue
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if hasExtension(path, exts) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			missing = append(missing, missingPath{path: p, err: fmt.Errorf("walk: %w", err)})
		}
	}
	return files, missing
}

func hasExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, want := range exts {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
