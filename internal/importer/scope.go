package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"tourline/internal/domain"
	"tourline/internal/tourxml"
)

const (
	scopeRoot           = "mt"
	scopeTour           = "tour"
	scopeTourType       = "tourtype"
	scopeTags           = "tags"
	scopeMarkers        = "markers"
	scopeWaypoints      = "waypoints"
	scopePhotos         = "photos"
	scopeSensorValues   = "sensorvalues"
	scopeTourReferences = "tourreferences"
	scopeDataSeries     = "dataseries"

	leafName = "name"
)

type eventSource interface {
	Next() (tourxml.Event, error)
}

// itemScope describes one collection: the item tag plus the attribute and leaf
// tables of its items.
type itemScope[T comparable] struct {
	item   string
	attrs  *Table[T]
	leaves *Table[T]
}

var (
	markerScope        = itemScope[domain.Marker]{item: "marker", attrs: markerAttrs, leaves: markerLeaves}
	waypointScope      = itemScope[domain.Waypoint]{item: "waypoint", attrs: waypointAttrs, leaves: waypointLeaves}
	photoScope         = itemScope[domain.Photo]{item: "photo", attrs: photoAttrs, leaves: photoLeaves}
	sensorValueScope   = itemScope[domain.SensorReading]{item: "sensorvalue", attrs: sensorValueAttrs, leaves: sensorValueLeaves}
	tourReferenceScope = itemScope[domain.TourReference]{item: "tourreference", attrs: tourReferenceAttrs, leaves: tourReferenceLeaves}
)

// fileParse is the state of one file's reconstruction.
type fileParse struct {
	ctx    context.Context
	src    eventSource
	path   string
	suffix string
	index  ImportedIndex
	sink   *Sink
	log    *slog.Logger
	trace  func(name string)

	pending *domain.Tour
	staged  []staged
	// tags and tour type seen before the first tour are held for it
	early domain.Tour
	seen    map[domain.TourID]struct{}
}

// staged is a finalized tour waiting for the file to complete.
type staged struct {
	tour *domain.Tour
	dup  bool
}

// next reads an event inside an open scope, where end of input is a failure.
func (p *fileParse) next() (tourxml.Event, error) {
	ev, err := p.src.Next()
	if errors.Is(err, io.EOF) {
		return ev, io.ErrUnexpectedEOF
	}
	return ev, err
}

// run drives the root scope until the input is exhausted. Child scopes found next to
// a tour rather than inside it belong to the most recent tour, so a tour is
// finalized when the next tour starts, the root closes, or the input ends.
func (p *fileParse) run() error {
	for {
		ev, err := p.src.Next()
		if errors.Is(err, io.EOF) {
			return p.finalize()
		}
		if err != nil {
			return err
		}
		switch ev.Kind {
		case tourxml.EnterScope:
			switch ev.Name {
			case scopeRoot:
			case scopeTour:
				if err := p.finalize(); err != nil {
					return err
				}
				if err := p.ctx.Err(); err != nil {
					return err
				}
				t := p.enterTour(ev.Attrs)
				p.takeEarly(t)
				if err := p.readTour(t); err != nil {
					return err
				}
				p.pending = t
			default:
				if p.pending == nil {
					if ev.Name == scopeTags || ev.Name == scopeTourType {
						if err := p.child(&p.early, ev); err != nil {
							return err
						}
						continue
					}
					if err := p.skip(ev.Name); err != nil {
						return err
					}
					continue
				}
				if err := p.child(p.pending, ev); err != nil {
					return err
				}
			}
		case tourxml.ExitScope:
			if ev.Name == scopeRoot {
				if err := p.finalize(); err != nil {
					return err
				}
			}
		}
	}
}

// enterTour creates the aggregate, applies every attribute and then the ordered
// subset.
func (p *fileParse) enterTour(attrs map[string]string) *domain.Tour {
	t := &domain.Tour{}
	in := tourIntake{tour: t}
	tourAttrs.ApplyAttrs(&in, attrs)
	applyOrdered(t, &in.ordered, p.trace)
	return t
}

// takeEarly hands the buffered pre-tour tags and type to t. A tourtype inside
// the tour still wins since it is read afterwards.
func (p *fileParse) takeEarly(t *domain.Tour) {
	t.AddPendingTagNames(p.early.PendingTagNames)
	if p.early.PendingTypeName != nil {
		t.SetPendingTypeName(*p.early.PendingTypeName)
	}
	p.early.PendingTagNames = nil
	p.early.PendingTypeName = nil
}

func (p *fileParse) readTour(t *domain.Tour) error {
	for {
		ev, err := p.next()
		if err != nil {
			return err
		}
		switch ev.Kind {
		case tourxml.EnterScope:
			if _, ok := tourLeaves.Lookup(ev.Name); ok {
				text, err := p.readText(ev.Name)
				if err != nil {
					return err
				}
				tourLeaves.Set(t, ev.Name, text)
				continue
			}
			if err := p.child(t, ev); err != nil {
				return err
			}
		case tourxml.ExitScope:
			if ev.Name == scopeTour {
				return nil
			}
		}
	}
}

// child handles a child scope of a tour. Unknown scopes are skipped whole.
func (p *fileParse) child(t *domain.Tour, ev tourxml.Event) error {
	var err error
	switch ev.Name {
	case scopeMarkers:
		var items []domain.Marker
		if items, err = readItems(p, ev.Name, markerScope); err == nil {
			t.AttachMarkers(items)
		}
	case scopeWaypoints:
		var items []domain.Waypoint
		if items, err = readItems(p, ev.Name, waypointScope); err == nil {
			t.AttachWaypoints(items)
		}
	case scopePhotos:
		var items []domain.Photo
		if items, err = readItems(p, ev.Name, photoScope); err == nil {
			t.AttachPhotos(items)
		}
	case scopeSensorValues:
		var items []domain.SensorReading
		if items, err = readItems(p, ev.Name, sensorValueScope); err == nil {
			t.AttachSensorReadings(items)
		}
	case scopeTourReferences:
		var items []domain.TourReference
		if items, err = readItems(p, ev.Name, tourReferenceScope); err == nil {
			t.AttachTourReferences(items)
		}
	case scopeTags:
		var names []string
		if names, err = p.readNames(ev.Name); err == nil {
			t.AddPendingTagNames(names)
		}
	case scopeTourType:
		var names []string
		if names, err = p.readNames(ev.Name); err == nil && len(names) > 0 {
			t.SetPendingTypeName(names[len(names)-1])
		}
	case scopeDataSeries:
		var sd *domain.SerieData
		if sd, err = p.readSeries(); err == nil {
			t.Series = sd
		}
	default:
		return p.skip(ev.Name)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", ev.Name, err)
	}
	return nil
}

// readItems collects the items of one collection scope into a value set.
func readItems[T comparable](p *fileParse, scope string, spec itemScope[T]) ([]T, error) {
	var set []T
	seen := map[T]struct{}{}
	for {
		ev, err := p.next()
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case tourxml.EnterScope:
			if ev.Name != spec.item {
				if err := p.skip(ev.Name); err != nil {
					return nil, err
				}
				continue
			}
			var v T
			spec.attrs.ApplyAttrs(&v, ev.Attrs)
			if err := p.readLeaves(spec.item, func(name, text string) { spec.leaves.Set(&v, name, text) }); err != nil {
				return nil, err
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			set = append(set, v)
		case tourxml.ExitScope:
			if ev.Name == scope {
				return set, nil
			}
		}
	}
}

// readNames reads the trimmed, non-empty name leaves of a tags or tourtype scope.
func (p *fileParse) readNames(scope string) ([]string, error) {
	var names []string
	err := p.readLeaves(scope, func(name, text string) {
		if name != leafName {
			return
		}
		if text = strings.TrimSpace(text); text != "" {
			names = append(names, text)
		}
	})
	return names, err
}

// readLeaves hands the text of every direct child of scope to fn, until scope
// closes.
func (p *fileParse) readLeaves(scope string, fn func(name, text string)) error {
	for {
		ev, err := p.next()
		if err != nil {
			return err
		}
		switch ev.Kind {
		case tourxml.EnterScope:
			text, err := p.readText(ev.Name)
			if err != nil {
				return err
			}
			fn(ev.Name, text)
		case tourxml.ExitScope:
			if ev.Name == scope {
				return nil
			}
		}
	}
}

// readText returns the text content of scope and consumes it to its exit.
func (p *fileParse) readText(scope string) (string, error) {
	var b strings.Builder
	for {
		ev, err := p.next()
		if err != nil {
			return "", err
		}
		switch ev.Kind {
		case tourxml.LeafText:
			b.WriteString(ev.Text)
		case tourxml.EnterScope:
			if err := p.skip(ev.Name); err != nil {
				return "", err
			}
		case tourxml.ExitScope:
			if ev.Name == scope {
				return b.String(), nil
			}
		}
	}
}

// skip discards events up to and including the exit of an already entered scope.
func (p *fileParse) skip(scope string) error {
	for depth := 1; depth > 0; {
		ev, err := p.next()
		if err != nil {
			return err
		}
		switch ev.Kind {
		case tourxml.EnterScope:
			depth++
		case tourxml.ExitScope:
			depth--
		}
	}
	return nil
}

// finalize assigns the pending tour its identity and stages it unless it is a
// duplicate. Duplicates are dropped before any registry is touched.
func (p *fileParse) finalize() error {
	t := p.pending
	if t == nil {
		return nil
	}
	p.pending = nil
	t.UniqueKey = UniqueKey(t, p.suffix)
	t.ID = Identify(t)
	dup, err := isDuplicate(p.ctx, t.ID, p.index, p.sink, p.seen)
	if err != nil {
		return fmt.Errorf("check tour %d: %w", t.ID, err)
	}
	p.seen[t.ID] = struct{}{}
	p.staged = append(p.staged, staged{tour: t, dup: dup})
	return nil
}
