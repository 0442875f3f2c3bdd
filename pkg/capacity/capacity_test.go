package capacity

import (
	"testing"

	"github.com/forgeops/anvil/pkg/types"
	"github.com/stretchr/testify/assert"
)

// TestCheck tests pool capacity comparison
func TestCheck(t *testing.T) {
	pools := []types.Pool{
		{Name: "tank", FreeBytes: 1 << 40, TotalBytes: 2 << 40},
		{Name: "scratch", FreeBytes: 1 << 30, TotalBytes: 1 << 40},
	}

	t.Run("sufficient", func(t *testing.T) {
		res := Check(pools, "tank", 500*1<<30)
		assert.True(t, res.Found)
		assert.True(t, res.Sufficient)
		assert.Equal(t, int64(1<<40), res.FreeBytes)
		assert.Equal(t, int64(500*1<<30), res.RequiredBytes)
	})

	t.Run("insufficient", func(t *testing.T) {
		res := Check(pools, "scratch", 500*1<<30)
		assert.True(t, res.Found)
		assert.False(t, res.Sufficient)
	})

	t.Run("exact fit is sufficient", func(t *testing.T) {
		res := Check(pools, "scratch", 1<<30)
		assert.True(t, res.Sufficient)
	})

	t.Run("pool absent", func(t *testing.T) {
		res := Check(pools, "nope", 1024)
		assert.False(t, res.Found)
		assert.False(t, res.Sufficient)
	})

	t.Run("empty pool list", func(t *testing.T) {
		res := Check(nil, "tank", 1024)
		assert.False(t, res.Found)
	})
}
