package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RatePull/internal/domain/models"
)

func TestFieldColumn(t *testing.T) {
	for _, f := range models.AllFields() {
		col, err := fieldColumn(f)
		require.NoError(t, err)
		assert.Equal(t, string(f), col)
	}

	_, err := fieldColumn(models.Field("observed_at; drop table rate_snapshots"))
	assert.Error(t, err)
}
