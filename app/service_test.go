package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evnav/config"
	"github.com/kilianp07/evnav/core/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
vehicles:
  - id: u1
    car:
      battery_soc_percent: 40
      charging_status: idle
  - id: u2
    car:
      battery_soc_percent: 50
      charging_status: charging
routes:
  - id: r1
    geometry: [[0, 0], [0, 1]]
    duration: 3
`), 0o600))
	cfg := &config.Config{}
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Store.SeedFile = seed
	publish := false
	cfg.Telemetry.Publish = &publish
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestOpenStoresMemorySeed(t *testing.T) {
	cfg := testConfig(t)
	stores, err := OpenStores(context.Background(), cfg.Store)
	require.NoError(t, err)
	defer stores.Close()

	v, err := stores.Vehicles.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 40.0, v.Car.BatterySOCPercent)

	r, err := stores.Routes.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.NewPoint(0, 1), r.Geometry[1])
}

func TestOpenStoresBadSeed(t *testing.T) {
	_, err := OpenStores(context.Background(), config.StoreConfig{Backend: config.StoreMemory, SeedFile: "/does/not/exist.yaml"})
	assert.Error(t, err)
}

func TestServiceWiring(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()

	ts := httptest.NewServer(svc.API.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/user")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	total, err := svc.Engine.Start(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestServiceRunDrivesBatteryClock(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.IntervalMS = 20
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	assert.Eventually(t, func() bool {
		v, err := svc.Stores.Vehicles.Get(context.Background(), "u2")
		return err == nil && v.Car.BatterySOCPercent > 50
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("service did not stop")
	}
}
