package snapshot

import (
	"errors"
	"fmt"

	"github.com/ormasoftchile/paramsnap/pkg/storage"
)

// ErrMalformedSnapshot marks a snapshot that declares value nodes but carries
// no slider values to assign them.
var ErrMalformedSnapshot = errors.New("malformed snapshot: SliderVals is empty but bank sizes are not")

// ErrNotFound is returned (wrapped in a LoadError) when the snapshot does not exist.
var ErrNotFound = storage.ErrNotFound

// LoadError reports a snapshot that could not be read, decoded or validated.
// A restore pass that fails with a LoadError has not touched the graph.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load snapshot %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// WriteError reports a failed store. The previous content at Path may be lost.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write snapshot %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
