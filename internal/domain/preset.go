package domain

import "slices"

// DefaultPresetSeconds are the stock rest durations offered to users.
var DefaultPresetSeconds = []int{30, 45, 60, 90, 120}

// PresetCatalog is an ordered list of named durations a timer can snap to.
// It is a UI convenience, not a validation boundary.
type PresetCatalog struct {
	seconds []int
}

// NewPresetCatalog builds a catalog from seconds, sorted ascending with
// duplicates and non-positive values removed.
func NewPresetCatalog(seconds ...int) PresetCatalog {
	out := make([]int, 0, len(seconds))
	for _, s := range seconds {
		if s > 0 {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return PresetCatalog{seconds: slices.Compact(out)}
}

// DefaultPresets returns the stock catalog.
func DefaultPresets() PresetCatalog {
	return NewPresetCatalog(DefaultPresetSeconds...)
}

// Seconds returns a copy of the catalog entries.
func (c PresetCatalog) Seconds() []int {
	return slices.Clone(c.seconds)
}

// Contains reports whether seconds is a catalog entry.
func (c PresetCatalog) Contains(seconds int) bool {
	_, found := slices.BinarySearch(c.seconds, seconds)
	return found
}

// Len returns the number of entries.
func (c PresetCatalog) Len() int {
	return len(c.seconds)
}
