// Package priority holds the weight table that decides which vocabulary item
// is shown next, and its on-disk snapshot.
package priority

import (
	"fmt"
	"math/rand"
	"sort"
	"unicode/utf8"
)

// Item is a single learnable word or phrase.
type Item string

// Weight is how much repetition an item still needs. Zero means mastered.
type Weight int

// Table maps every known item to its remaining weight.
// Items are never removed; a mastered item stays at 0.
type Table map[Item]Weight

// MaxRepetitions bounds the initial weight exponent. Any weight above
// MaxWeight cannot come from this package and marks a snapshot as corrupt.
const (
	MaxRepetitions = 30
	MaxWeight      = Weight(1) << MaxRepetitions
)

// InitialWeight returns 2^maxRepetitions, the weight a fresh item starts at.
// maxRepetitions is clamped to [0, MaxRepetitions].
func InitialWeight(maxRepetitions int) Weight {
	if maxRepetitions < 0 {
		maxRepetitions = 0
	}
	if maxRepetitions > MaxRepetitions {
		maxRepetitions = MaxRepetitions
	}
	return Weight(1) << maxRepetitions
}

// validate rejects items that would not survive a snapshot round trip.
func validate(items []Item) error {
	for _, it := range items {
		if !utf8.ValidString(string(it)) {
			return fmt.Errorf("%w: %q", ErrInvalidItem, it)
		}
	}
	return nil
}

// Initialize builds a fresh table with every item at w.
// Duplicate items collapse to one entry.
func Initialize(items []Item, w Weight) (Table, error) {
	if len(items) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if w <= 0 || w > MaxWeight {
		return nil, fmt.Errorf("priority: initial weight %d out of range [1, %d]", w, MaxWeight)
	}
	if err := validate(items); err != nil {
		return nil, err
	}
	t := make(Table, len(items))
	for _, it := range items {
		t[it] = w
	}
	return t, nil
}

// Merge adds items missing from t at weight w. Existing entries, including
// mastered ones and ones absent from items, are left as they are.
// It returns the items that were added, sorted. Nothing is added when any
// item is invalid.
func Merge(t Table, items []Item, w Weight) (Table, []Item, error) {
	if err := validate(items); err != nil {
		return t, nil, err
	}
	if t == nil {
		t = make(Table, len(items))
	}
	var added []Item
	for _, it := range items {
		if _, ok := t[it]; ok {
			continue
		}
		t[it] = w
		added = append(added, it)
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	return t, added, nil
}

// Select draws one item with probability weight/sum over positive weights.
// Keys are walked in sorted order so a seeded rng gives a fixed sequence.
func Select(t Table, rng *rand.Rand) (Item, error) {
	keys := t.keys()
	total := 0
	for _, k := range keys {
		if w := t[k]; w > 0 {
			total += int(w)
		}
	}
	if total == 0 {
		return "", ErrExhausted
	}

	r := rng.Intn(total)
	for _, k := range keys {
		w := t[k]
		if w <= 0 {
			continue
		}
		if r < int(w) {
			return k, nil
		}
		r -= int(w)
	}
	// unreachable while total matches the walk above
	return "", ErrExhausted
}

// Decay halves the weight of it (floor division) and returns the new weight.
func Decay(t Table, it Item) (Weight, error) {
	w, ok := t[it]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownItem, it)
	}
	w /= 2
	t[it] = w
	return w, nil
}

// TotalRemaining is the sum of all weights.
func TotalRemaining(t Table) int {
	sum := 0
	for _, w := range t {
		sum += int(w)
	}
	return sum
}

// Counts returns how many items are mastered and how many are still pending.
func Counts(t Table) (mastered, pending int) {
	for _, w := range t {
		if w == 0 {
			mastered++
		} else {
			pending++
		}
	}
	return mastered, pending
}

// Entry is one row of a table, used for sorted listings.
type Entry struct {
	Item   Item   `json:"item"`
	Weight Weight `json:"weight"`
}

// Ranked returns the entries ordered by weight descending, then by item.
// A limit of 0 or less returns everything.
func Ranked(t Table, limit int) []Entry {
	out := make([]Entry, 0, len(t))
	for k, w := range t {
		out = append(out, Entry{Item: k, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Item < out[j].Item
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (t Table) keys() []Item {
	keys := make([]Item, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
