package isu

import (
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/internal/gradestore"
	"isugrades-backend/internal/scrapers/isu/isutest"
	"isugrades-backend/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type testEnv struct {
	portal   *isutest.Portal
	store    gradestore.Store
	recorder *telemetry.Recorder
	options  Options
}

func newTestEnv(t testing.TB) testEnv {
	t.Helper()

	setup := testutil.SetupStore(t)
	portal := isutest.NewPortal(t)

	return testEnv{
		portal:   portal,
		store:    setup.Store,
		recorder: setup.Telemetry,
		options: Options{
			BaseUrl:   portal.URL(),
			Timeout:   5 * time.Second,
			RateLimit: rate.Inf,
			Store:     setup.Store,
			Time:      setup.Time,
			Telemetry: setup.Telemetry,
		},
	}
}

func (e testEnv) newClient(t testing.TB) *Client {
	t.Helper()
	client, err := NewClient(e.options)
	require.NoError(t, err)
	return client
}
