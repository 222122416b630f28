package handler

import (
	"errors"
	"fmt"

	"resttimer/internal/domain"
)

// maxTimerSeconds caps request values. Variant bounds are applied later by
// the engine.
const maxTimerSeconds = 3600

func validateSeconds(seconds int) error {
	if seconds < 1 {
		return errors.New("seconds must be at least 1")
	}
	if seconds > maxTimerSeconds {
		return fmt.Errorf("seconds must not exceed %d", maxTimerSeconds)
	}
	return nil
}

// validateDelta accepts zero, which restarts the cycle at the current
// remaining time.
func validateDelta(delta int) error {
	if delta > maxTimerSeconds || delta < -maxTimerSeconds {
		return fmt.Errorf("delta must be within ±%d", maxTimerSeconds)
	}
	return nil
}

func parseVariant(name string, fallback domain.Variant) (domain.Variant, error) {
	if name == "" {
		return fallback, nil
	}
	v, err := domain.ParseVariant(name)
	if err != nil {
		return "", errors.New("variant must be one of full, compact, inline, minimal")
	}
	return v, nil
}
