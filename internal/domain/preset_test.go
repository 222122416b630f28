package domain_test

import (
	"testing"

	"resttimer/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPresets(t *testing.T) {
	c := domain.DefaultPresets()

	assert.Equal(t, []int{30, 45, 60, 90, 120}, c.Seconds())
	assert.True(t, c.Contains(90))
	assert.False(t, c.Contains(75))
}

func TestNewPresetCatalog_SortsAndFilters(t *testing.T) {
	c := domain.NewPresetCatalog(90, 0, 30, -5, 60, 30)

	assert.Equal(t, []int{30, 60, 90}, c.Seconds())
	assert.Equal(t, 3, c.Len())
}

func TestPresetCatalog_SecondsReturnsCopy(t *testing.T) {
	c := domain.DefaultPresets()

	s := c.Seconds()
	s[0] = 999

	assert.Equal(t, 30, c.Seconds()[0])
}
