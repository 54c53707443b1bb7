package segment

import (
	"errors"
	"fmt"

	"github.com/haivivi/audioseg/pkg/audio/pcm"
	"github.com/haivivi/audioseg/pkg/audio/wav"
)

var (
	// ErrInvalidFormat is returned for inconsistent format parameters. It is
	// the same value as pcm.ErrInvalidFormat.
	ErrInvalidFormat = pcm.ErrInvalidFormat

	// ErrMalformedHeader is returned for unusable WAV headers. It is the
	// same value as wav.ErrMalformedHeader.
	ErrMalformedHeader = wav.ErrMalformedHeader

	// ErrIO wraps read and write faults of the source or the store.
	ErrIO = errors.New("segment: i/o failure")

	// ErrContainerWrite is returned when an output container cannot be
	// configured or finalized.
	ErrContainerWrite = errors.New("segment: container write failed")

	// ErrCancelled is returned when the context is done between segments.
	ErrCancelled = errors.New("segment: cancelled")

	// ErrUnsupportedContainer is returned for encoded sources that cannot be
	// re-muxed.
	ErrUnsupportedContainer = errors.New("segment: unsupported container")
)

// PartialError is returned instead of a bare error when WithKeepPartial is
// set. Results lists the segments that remain on storage.
type PartialError struct {
	Results []Result
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("segment: failed after %d segments: %v", len(e.Results), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

func readErr(err error) error {
	return fmt.Errorf("segment: read source: %w", errors.Join(ErrIO, err))
}

func writeErr(path string, err error) error {
	return fmt.Errorf("segment: write %s: %w", path, errors.Join(ErrIO, err))
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
