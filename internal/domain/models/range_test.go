package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRange(t *testing.T) {
	assert.Equal(t, Range1m, NormalizeRange(""))
	assert.Equal(t, Range1y, NormalizeRange("1y"))
	assert.Equal(t, Range1m, NormalizeRange("5d"))
}

func TestRangeWindow(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, loc)

	from, to := Range1w.Window(now, loc)
	assert.True(t, from.Equal(time.Date(2026, 3, 8, 0, 0, 0, 0, loc)))
	assert.True(t, to.Equal(time.Date(2026, 3, 15, 23, 59, 59, 999e6, loc)))

	from, _ = Range1m.Window(now, loc)
	assert.True(t, from.Equal(time.Date(2026, 2, 15, 0, 0, 0, 0, loc)))

	from, _ = Range1y.Window(now, loc)
	assert.True(t, from.Equal(time.Date(2025, 3, 15, 0, 0, 0, 0, loc)))
}
