package reconcile

import (
	"errors"
	"fmt"

	"github.com/blueturn/epicmirror/internal/catalog"
	"github.com/blueturn/epicmirror/internal/geometry"
	"github.com/blueturn/epicmirror/internal/models"
)

// State is where a date stands in a run.
type State int

const (
	StateUnknown State = iota
	StateNew
	StateUpToDate
	StateStale
	StateSyncing
	StateSynced
	StatePartiallySynced
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateUpToDate:
		return "UP_TO_DATE"
	case StateStale:
		return "STALE"
	case StateSyncing:
		return "SYNCING"
	case StateSynced:
		return "SYNCED"
	case StatePartiallySynced:
		return "PARTIALLY_SYNCED"
	default:
		return "UNKNOWN"
	}
}

// SkipReason says why an image was left out of a catalog.
type SkipReason string

const (
	ReasonFetch     SkipReason = "fetch"
	ReasonGeometry  SkipReason = "geometry"
	ReasonMalformed SkipReason = "malformed"
	ReasonStore     SkipReason = "store"
	ReasonOther     SkipReason = "other"
)

// StoreError is a failed mirror write.
type StoreError struct {
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Classify maps an image failure to its skip reason.
func Classify(err error) SkipReason {
	var fetchErr *catalog.FetchError
	var geomErr *geometry.Error
	var malformed *models.MalformedRecordError
	var storeErr *StoreError

	switch {
	case errors.As(err, &malformed):
		return ReasonMalformed
	case errors.As(err, &fetchErr):
		return ReasonFetch
	case errors.Is(err, geometry.ErrNoDisc), errors.As(err, &geomErr):
		return ReasonGeometry
	case errors.As(err, &storeErr):
		return ReasonStore
	default:
		return ReasonOther
	}
}

// ImageResult is the outcome of one image of a delta.
type ImageResult struct {
	ImageID string
	Reason  SkipReason
	Err     error
}

// DateOutcome summarizes one date of a run.
type DateOutcome struct {
	Date  models.DateKey
	State State
	// Delta lists the image ids that were processed.
	Delta   []string
	Synced  []string
	Skipped []ImageResult
	// Published is set when the date's catalog was written.
	Published bool
	// Err is set when the date could not be reconciled at all.
	Err error
}

// DatePlan is the classification of one date without any processing.
type DatePlan struct {
	Date   models.DateKey
	State  State
	Delta  []string
	Remote int
	Mirror int
}

// Summary aggregates a run.
type Summary struct {
	Dates     []DateOutcome
	AuditPath string
}

func (s *Summary) Synced() int {
	n := 0
	for _, d := range s.Dates {
		n += len(d.Synced)
	}
	return n
}

func (s *Summary) Skipped() int {
	n := 0
	for _, d := range s.Dates {
		n += len(d.Skipped)
	}
	return n
}

// Count returns how many dates ended in state.
func (s *Summary) Count(state State) int {
	n := 0
	for _, d := range s.Dates {
		if d.State == state {
			n++
		}
	}
	return n
}
