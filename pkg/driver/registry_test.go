package driver

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopDriver struct{}

func (nopDriver) Connect(_ context.Context, _ Config) (Conn, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	Register("nop", func(_ *slog.Logger) Driver { return nopDriver{} })

	t.Run("known driver", func(t *testing.T) {
		d, err := New("nop", nil)
		require.NoError(t, err)
		assert.NotNil(t, d)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := New("warpspeed", nil)
		require.Error(t, err)

		var unknownErr *UnknownDriverError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, "warpspeed", unknownErr.Name)
		assert.Contains(t, unknownErr.Available, "nop")
		assert.Contains(t, err.Error(), "Available drivers")
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := New("", nil)
		assert.Error(t, err)
	})

	t.Run("is registered", func(t *testing.T) {
		assert.True(t, IsRegistered("nop"))
		assert.False(t, IsRegistered("warpspeed"))
	})

	t.Run("list is sorted", func(t *testing.T) {
		Register("aardvark", func(_ *slog.Logger) Driver { return nopDriver{} })
		names := List()
		require.NotEmpty(t, names)
		for i := 1; i < len(names); i++ {
			assert.LessOrEqual(t, names[i-1], names[i])
		}
	})
}
