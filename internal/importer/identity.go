package importer

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"

	"tourline/internal/domain"
)

// DefaultSourceSuffix distinguishes tours read from MT exports from tours with the
// same start and distance imported through other readers.
const DefaultSourceSuffix = "74953"

const maxIDDigits = 18

// UniqueKey is the integer part of the tour distance followed by suffix, or suffix
// alone when the tour has no distance.
func UniqueKey(t *domain.Tour, suffix string) string {
	if t.TourDistance > 0 {
		return strconv.FormatInt(int64(t.TourDistance), 10) + suffix
	}
	return suffix
}

// Identify derives the tour id from its start minute in the tour time zone and its
// unique key. Keys too long for an int64 are hashed instead.
func Identify(t *domain.Tour) domain.TourID {
	var b strings.Builder
	for _, v := range []int{t.StartYear, t.StartMonth, t.StartDay, t.StartHour, t.StartMinute} {
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteString(t.UniqueKey)
	s := b.String()
	if len(s) <= maxIDDigits {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return domain.TourID(id)
		}
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return domain.TourID(h.Sum64() & (1<<63 - 1))
}

// isDuplicate applies keep-first: ids already stored, already accepted into the
// batch sink, or seen earlier in the same file are duplicates.
func isDuplicate(ctx context.Context, id domain.TourID, index ImportedIndex, sink *Sink, seen map[domain.TourID]struct{}) (bool, error) {
	if _, ok := seen[id]; ok {
		return true, nil
	}
	if sink != nil {
		if _, ok := sink.NewlyImported[id]; ok {
			return true, nil
		}
	}
	if index == nil {
		return false, nil
	}
	return index.IsImported(ctx, id)
}
