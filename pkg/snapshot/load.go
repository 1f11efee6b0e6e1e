package snapshot

import (
	"context"
	"fmt"

	"github.com/ormasoftchile/paramsnap/pkg/storage"
)

// Load reads and validates the snapshot at path. Any error-severity finding
// is returned as a *LoadError; warnings are returned alongside a usable snapshot.
func Load(ctx context.Context, store storage.Store, path string, rules []Rule) (*Snapshot, []*ValidationError, error) {
	if path == "" {
		return nil, nil, &LoadError{Path: path, Err: fmt.Errorf("empty path")}
	}
	data, err := store.Read(ctx, path)
	if err != nil {
		return nil, nil, &LoadError{Path: path, Err: err}
	}

	s, findings := Validate(data, rules)
	if errs := Errors(findings); len(errs) > 0 {
		return nil, findings, &LoadError{Path: path, Err: errs}
	}
	return s, Warnings(findings), nil
}
