package isu

import (
	"context"
	devenv "isugrades-backend/dev/env"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLivePortal logs into the real portal with the credentials in
// `<dev_state>/isu_config.json5`.
func TestLivePortal(t *testing.T) {
	config, err := devenv.GetStateConfig[devenv.PortalTestConfig]("isu_config.json5")
	if err != nil {
		t.Skip("live portal config not found:", err)
	}
	if config.Login == "" || config.Password == "" {
		t.Skip("live portal credentials are not filled in at <dev_state>/isu_config.local.json5")
	}

	env := newTestEnv(t)
	options := env.options
	options.BaseUrl = config.BaseUrl
	options.RateLimit = 0
	options.Timeout = 0

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err = WithSession(ctx, options, func(ctx context.Context, client *Client) error {
		ok, err := client.Authenticate(ctx, config.Login, config.Password)
		require.NoError(t, err)
		require.True(t, ok, "credentials were rejected")
		require.NoError(t, client.LastSyncError())

		owner, ok := client.OwnerID()
		require.True(t, ok)
		record, ok, err := client.GradebookRecord(ctx, owner)
		require.NoError(t, err)
		require.True(t, ok)
		require.NotZero(t, record.ID)
		require.NotEmpty(t, record.FullName)
		return nil
	})
	require.NoError(t, err)
}
