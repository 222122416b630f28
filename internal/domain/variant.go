package domain

import (
	"fmt"
	"strings"
	"time"
)

// Variant is a named presentation mode. Besides the look of the timer it
// selects the adjustment bounds and completion delay the engine applies.
type Variant string

const (
	VariantFull    Variant = "full"
	VariantCompact Variant = "compact"
	VariantInline  Variant = "inline"
	VariantMinimal Variant = "minimal"
)

// MinAdjustableSeconds is the floor for AdjustTime regardless of variant.
const MinAdjustableSeconds = 5

// Policy holds the non-visual parameters of a variant.
type Policy struct {
	// MaxAdjustableSeconds is the ceiling AdjustTime clamps to.
	MaxAdjustableSeconds int
	// SettleDelay separates reaching zero from the completion signal.
	SettleDelay time.Duration
	// MinPulse is the shortest vibration pulse feedback may emit.
	MinPulse time.Duration
}

// PolicyTable maps variants to their policy. It is read-only once built.
type PolicyTable map[Variant]Policy

// DefaultPolicies is the stock variant table.
var DefaultPolicies = PolicyTable{
	VariantFull: {
		MaxAdjustableSeconds: 300,
		SettleDelay:          1500 * time.Millisecond,
		MinPulse:             50 * time.Millisecond,
	},
	VariantCompact: {
		MaxAdjustableSeconds: 300,
		SettleDelay:          800 * time.Millisecond,
		MinPulse:             45 * time.Millisecond,
	},
	VariantInline: {
		MaxAdjustableSeconds: 300,
		SettleDelay:          1500 * time.Millisecond,
		MinPulse:             40 * time.Millisecond,
	},
	VariantMinimal: {
		MaxAdjustableSeconds: 120,
		SettleDelay:          500 * time.Millisecond,
		MinPulse:             40 * time.Millisecond,
	},
}

// Variants lists the known variants in display order.
func Variants() []Variant {
	return []Variant{VariantFull, VariantCompact, VariantInline, VariantMinimal}
}

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	switch v {
	case VariantFull, VariantCompact, VariantInline, VariantMinimal:
		return true
	}
	return false
}

// ParseVariant converts a case-insensitive name into a Variant.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidVariant, s)
	}
	return v, nil
}

// Lookup returns the policy for v. Unknown variants resolve to the full
// variant's policy and report false.
func (t PolicyTable) Lookup(v Variant) (Policy, bool) {
	if p, ok := t[v]; ok {
		return p, true
	}
	if p, ok := t[VariantFull]; ok {
		return p, false
	}
	return DefaultPolicies[VariantFull], false
}

// Clamp bounds seconds to [MinAdjustableSeconds, MaxAdjustableSeconds].
func (p Policy) Clamp(seconds int) int {
	if seconds < MinAdjustableSeconds {
		return MinAdjustableSeconds
	}
	if seconds > p.MaxAdjustableSeconds {
		return p.MaxAdjustableSeconds
	}
	return seconds
}
