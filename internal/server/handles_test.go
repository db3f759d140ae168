package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandles(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	newHandles := func(now *time.Time) *Handles {
		h := NewHandles(time.Hour)
		h.now = func() time.Time { return *now }
		return h
	}

	t.Run("Issue Then Lookup", func(t *testing.T) {
		now := start
		h := newHandles(&now)

		a, err := h.Issue("user-1")
		require.NoError(t, err)
		b, err := h.Issue("user-1")
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
		assert.NotEqual(t, "user-1", a)
		for _, handle := range []string{a, b} {
			userID, ok := h.Lookup(handle)
			require.True(t, ok)
			assert.Equal(t, "user-1", userID)
		}
	})

	t.Run("Unknown Handles", func(t *testing.T) {
		now := start
		h := newHandles(&now)
		_, err := h.Issue("user-1")
		require.NoError(t, err)

		for _, handle := range []string{"", "user-1", "not-issued"} {
			_, ok := h.Lookup(handle)
			assert.False(t, ok, handle)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		now := start
		h := newHandles(&now)
		handle, err := h.Issue("user-1")
		require.NoError(t, err)

		now = start.Add(time.Hour - time.Second)
		_, ok := h.Lookup(handle)
		assert.True(t, ok)

		now = start.Add(time.Hour)
		_, ok = h.Lookup(handle)
		assert.False(t, ok)
		assert.Zero(t, h.Len())
	})

	t.Run("Issue Prunes Expired", func(t *testing.T) {
		now := start
		h := newHandles(&now)
		for i := 0; i < 3; i++ {
			_, err := h.Issue("old")
			require.NoError(t, err)
		}

		now = start.Add(2 * time.Hour)
		_, err := h.Issue("new")
		require.NoError(t, err)
		assert.Equal(t, 1, h.Len())
	})

	t.Run("RevokeUser", func(t *testing.T) {
		now := start
		h := newHandles(&now)
		a, _ := h.Issue("user-1")
		b, _ := h.Issue("user-1")
		other, _ := h.Issue("user-2")

		h.RevokeUser("user-1")
		h.RevokeUser("nobody")

		for _, handle := range []string{a, b} {
			_, ok := h.Lookup(handle)
			assert.False(t, ok)
		}
		userID, ok := h.Lookup(other)
		assert.True(t, ok)
		assert.Equal(t, "user-2", userID)
	})
}
