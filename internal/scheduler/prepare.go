package scheduler

import (
	"fmt"

	"github.com/lazypower/lexloop/internal/priority"
)

// Prepared is the table a session starts from and how it was obtained.
type Prepared struct {
	Table    priority.Table
	Restored bool            // loaded from an existing snapshot
	Added    []priority.Item // vocabulary items merged into a restored table
}

// Prepare loads the snapshot at statePath and merges items into it, or
// initialises a fresh table at 2^maxRepetitions when there is no snapshot
// or fresh is set. Items already in the snapshot keep their weight; items
// only in the snapshot are kept.
func Prepare(statePath string, items []priority.Item, maxRepetitions int, fresh bool) (*Prepared, error) {
	w0 := priority.InitialWeight(maxRepetitions)

	var table priority.Table
	if !fresh {
		var err error
		table, err = priority.Load(statePath)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", statePath, err)
		}
	}

	if table == nil {
		t, err := priority.Initialize(items, w0)
		if err != nil {
			return nil, err
		}
		return &Prepared{Table: t}, nil
	}

	table, added, err := priority.Merge(table, items, w0)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, priority.ErrEmptyVocabulary
	}
	return &Prepared{Table: table, Restored: true, Added: added}, nil
}
