package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifcserve/hub/internal/config"
)

func TestAllowEnforcesFixedWindowLimit(t *testing.T) {
	config.SetValue("ratelimit.reserve.permit_limit", 2)
	config.SetValue("ratelimit.reserve.window_seconds", 60)
	l := NewLimiter("UploadReserve")

	require.NoError(t, l.Allow("tenant-a"))
	require.NoError(t, l.Allow("tenant-a"))
	err := l.Allow("tenant-a")
	require.Error(t, err)
}

func TestAllowIsPerKey(t *testing.T) {
	config.SetValue("ratelimit.reserve.permit_limit", 1)
	config.SetValue("ratelimit.reserve.window_seconds", 60)
	l := NewLimiter("UploadReserve")

	require.NoError(t, l.Allow("tenant-a"))
	assert.NoError(t, l.Allow("tenant-b"))
	assert.Error(t, l.Allow("tenant-a"))
}
