package importer

import (
	"tourline/internal/domain"
)

// Sink collects what a batch of files produced. One Sink is shared by every file
// of a batch; a file only reaches it once its stream was read completely.
type Sink struct {
	FileProducedValidData bool
	NewTagWasCreated      bool
	NewTypeWasCreated     bool
	NewlyImported         map[domain.TourID]*domain.Tour

	order []domain.TourID
}

func NewSink() *Sink {
	return &Sink{NewlyImported: map[domain.TourID]*domain.Tour{}}
}

// Tours returns the newly imported tours in the order they were accepted.
func (s *Sink) Tours() []*domain.Tour {
	out := make([]*domain.Tour, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.NewlyImported[id])
	}
	return out
}

// Merge folds the tours and flags of other into s. Callers staging each file in
// its own sink merge it once the file's effects are durable.
func (s *Sink) Merge(other *Sink) {
	if other == nil {
		return
	}
	if s.NewlyImported == nil {
		s.NewlyImported = map[domain.TourID]*domain.Tour{}
	}
	for _, id := range other.order {
		if _, ok := s.NewlyImported[id]; ok {
			continue
		}
		s.NewlyImported[id] = other.NewlyImported[id]
		s.order = append(s.order, id)
	}
	s.FileProducedValidData = s.FileProducedValidData || other.FileProducedValidData
	s.NewTagWasCreated = s.NewTagWasCreated || other.NewTagWasCreated
	s.NewTypeWasCreated = s.NewTypeWasCreated || other.NewTypeWasCreated
}

func (s *Sink) register(o Outcome) {
	if s.NewlyImported == nil {
		s.NewlyImported = map[domain.TourID]*domain.Tour{}
	}
	s.NewlyImported[o.TourID] = o.Tour
	s.order = append(s.order, o.TourID)
	s.FileProducedValidData = true
	s.NewTagWasCreated = s.NewTagWasCreated || o.TagCreated
	s.NewTypeWasCreated = s.NewTypeWasCreated || o.TypeCreated
}

type OutcomeKind int

const (
	OutcomeImported OutcomeKind = iota + 1
	OutcomeDuplicate
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeImported:
		return "imported"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the fate of one tour. Tour is only set for imported tours.
type Outcome struct {
	Kind              OutcomeKind
	TourID            domain.TourID
	Tour              *domain.Tour
	TagCreated        bool
	TypeCreated       bool
	CreatedTags       []domain.Tag
	CreatedType       *domain.TourType
	UnresolvedSensors []int64
	Err               error
}

type FileStatus string

const (
	StatusSkipped FileStatus = "skipped"
	StatusParsed  FileStatus = "parsed"
	StatusFailed  FileStatus = "failed"
)

// FileResult reports one file. Skipped files failed the signature check and were
// never parsed; failed files contributed nothing to the sink.
type FileResult struct {
	Path     string
	Status   FileStatus
	Outcomes []Outcome
	Err      error
}

func (r FileResult) Count(kind OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}
