// Package importer reconstructs tours from MT export files.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"tourline/internal/domain"
	"tourline/internal/tourxml"
)

// Importer reads MT export files into tours, deduplicates them and resolves their
// tag, type and sensor references. It holds no per-file state and may be reused,
// but it does not lock the registries it is given.
type Importer struct {
	Registries      Registries
	SourceSuffix    string
	SignatureWindow int
	Logger          *slog.Logger

	newSource func(io.Reader) eventSource
	trace     func(name string)
}

// New returns an Importer over reg. Missing registries are backed by one shared
// in-memory registry.
func New(reg Registries) *Importer {
	var mem *MemoryRegistry
	fill := func() *MemoryRegistry {
		if mem == nil {
			mem = NewMemoryRegistry()
		}
		return mem
	}
	if reg.Tags == nil {
		reg.Tags = fill()
	}
	if reg.Types == nil {
		reg.Types = fill()
	}
	if reg.Sensors == nil {
		reg.Sensors = fill()
	}
	if reg.Imported == nil {
		reg.Imported = fill()
	}
	return &Importer{
		Registries:      reg,
		SourceSuffix:    DefaultSourceSuffix,
		SignatureWindow: tourxml.DefaultSignatureWindow,
	}
}

func (im *Importer) logger() *slog.Logger {
	if im.Logger != nil {
		return im.Logger
	}
	return slog.Default()
}

// ImportFile opens path and imports it into sink.
func (im *Importer) ImportFile(ctx context.Context, path string, sink *Sink) FileResult {
	f, err := os.Open(path)
	if err != nil {
		return failed(path, fmt.Errorf("open: %w", err))
	}
	defer f.Close()
	return im.Import(ctx, path, f, sink)
}

// Import reads one export from r. Files without the export signature are skipped
// without being parsed. A file that cannot be read to the end fails as a whole:
// none of its tours reach the sink.
func (im *Importer) Import(ctx context.Context, path string, r io.Reader, sink *Sink) FileResult {
	body, ok, err := tourxml.Sniff(r, im.SignatureWindow)
	if err != nil {
		return failed(path, fmt.Errorf("read header: %w", err))
	}
	if !ok {
		return FileResult{Path: path, Status: StatusSkipped}
	}

	newSource := im.newSource
	if newSource == nil {
		newSource = func(r io.Reader) eventSource { return tourxml.NewReader(r) }
	}
	suffix := im.SourceSuffix
	if suffix == "" {
		suffix = DefaultSourceSuffix
	}
	p := &fileParse{
		ctx:    ctx,
		src:    newSource(body),
		path:   path,
		suffix: suffix,
		index:  im.Registries.Imported,
		sink:   sink,
		log:    im.logger().With("component", "importer"),
		trace:  im.trace,
		seen:   map[domain.TourID]struct{}{},
	}
	if err := p.run(); err != nil {
		return failed(path, err)
	}

	outcomes, err := im.resolve(ctx, p)
	if err != nil {
		return failed(path, err)
	}
	for _, o := range outcomes {
		if o.Kind == OutcomeImported && sink != nil {
			sink.register(o)
		}
	}
	return FileResult{Path: path, Status: StatusParsed, Outcomes: outcomes}
}

// resolve runs the cross-reference and sensor resolution for every new tour of a
// completed file. Duplicates pass through untouched.
func (im *Importer) resolve(ctx context.Context, p *fileParse) ([]Outcome, error) {
	out := make([]Outcome, 0, len(p.staged))
	for _, st := range p.staged {
		t := st.tour
		if st.dup {
			out = append(out, Outcome{Kind: OutcomeDuplicate, TourID: t.ID})
			continue
		}
		o := Outcome{Kind: OutcomeImported, TourID: t.ID, Tour: t}

		tt, created, err := resolveType(ctx, t.PendingTypeName, im.Registries.Types)
		if err != nil {
			return nil, err
		}
		t.TourType = tt
		if created {
			o.TypeCreated = true
			o.CreatedType = tt
		}

		tags, createdTags, err := resolveTags(ctx, t.PendingTagNames, im.Registries.Tags)
		if err != nil {
			return nil, err
		}
		t.Tags = tags
		o.CreatedTags = createdTags
		o.TagCreated = len(createdTags) > 0

		o.UnresolvedSensors, err = resolveSensors(ctx, t.SensorReadings, im.Registries.Sensors, p.log, p.path)
		if err != nil {
			return nil, err
		}
		if t.ImportFilePath == "" {
			t.ImportFilePath = filepath.Dir(p.path)
		}
		if t.ImportFileName == "" {
			t.ImportFileName = filepath.Base(p.path)
		}
		out = append(out, o)
	}
	return out, nil
}

func failed(path string, err error) FileResult {
	return FileResult{
		Path:     path,
		Status:   StatusFailed,
		Outcomes: []Outcome{{Kind: OutcomeFailed, Err: err}},
		Err:      err,
	}
}
