package priority

import "errors"

// Sentinel errors for the priority package.
// Use errors.Is to check: errors.Is(err, priority.ErrCorruptState)
var (
	ErrEmptyVocabulary = errors.New("priority: empty vocabulary")
	ErrCorruptState    = errors.New("priority: corrupt state snapshot")
	ErrUnknownItem     = errors.New("priority: unknown item")
	ErrInvalidItem     = errors.New("priority: item is not valid UTF-8")
	ErrExhausted       = errors.New("priority: no item with positive weight")
)
