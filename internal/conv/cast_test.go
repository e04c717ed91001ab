//go:build amd64 || arm64

package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntToInt32(t *testing.T) {
	t.Run("valid max", func(t *testing.T) {
		got, err := IntToInt32(math.MaxInt32)
		assert.NoError(t, err)
		assert.Equal(t, int32(math.MaxInt32), got)
	})

	t.Run("valid negative", func(t *testing.T) {
		got, err := IntToInt32(-5)
		assert.NoError(t, err)
		assert.Equal(t, int32(-5), got)
	})

	t.Run("invalid too large", func(t *testing.T) {
		_, err := IntToInt32(math.MaxInt32 + 1)
		assert.Error(t, err)
	})

	t.Run("invalid too small", func(t *testing.T) {
		_, err := IntToInt32(math.MinInt32 - 1)
		assert.Error(t, err)
	})
}

func TestIntToUint32(t *testing.T) {
	t.Run("valid zero", func(t *testing.T) {
		got, err := IntToUint32(0)
		assert.NoError(t, err)
		assert.Equal(t, uint32(0), got)
	})

	t.Run("invalid negative", func(t *testing.T) {
		_, err := IntToUint32(-1)
		assert.Error(t, err)
	})

	t.Run("invalid too large", func(t *testing.T) {
		_, err := IntToUint32(math.MaxUint32 + 1)
		assert.Error(t, err)
	})
}

func TestUint32ToInt(t *testing.T) {
	got, err := Uint32ToInt(math.MaxUint32)
	assert.NoError(t, err)
	assert.Equal(t, math.MaxUint32, got)
}

func TestInt32ToUint(t *testing.T) {
	got, err := Int32ToUint(7)
	assert.NoError(t, err)
	assert.Equal(t, uint(7), got)

	_, err = Int32ToUint(-1)
	assert.Error(t, err)
}
