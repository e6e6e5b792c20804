package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/playback"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfgPath = ""
		logLevel = ""
		routeMode = string(playback.ModeVertex)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRoutePlayback(t *testing.T) {
	path := writeFile(t, "route.json", `{"type":"FeatureCollection","features":[{
		"properties":{"summary":{"distance":100,"duration":4}},
		"geometry":{"type":"LineString","coordinates":[[0,0],[0,3]]}}]}`)

	out, err := execute(t, "route", "playback", "--file", path)
	require.NoError(t, err)
	var points []model.Point
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	require.Len(t, points, 4)
	assert.Equal(t, model.NewPoint(0, 0), points[0])
	assert.Equal(t, model.NewPoint(0, 3), points[3])
}

func TestRoutePlaybackStoredRoute(t *testing.T) {
	path := writeFile(t, "route.json", `{"routeId":"r1","geometry":[[0,0],[1,0]],"duration":2}`)
	out, err := execute(t, "route", "playback", "--file", path, "--mode", "distance")
	require.NoError(t, err)
	var points []model.Point
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	assert.Len(t, points, 2)
}

func TestRoutePlaybackBadMode(t *testing.T) {
	path := writeFile(t, "route.json", `{"geometry":[[0,0],[1,0]],"duration":2}`)
	_, err := execute(t, "route", "playback", "--file", path, "--mode", "spline")
	assert.Error(t, err)
}

func TestStationNear(t *testing.T) {
	seed := writeFile(t, "seed.yaml", `
stations:
  - id: near
    location: [2.351, 48.85]
  - id: far
    location: [2.6, 48.85]
`)
	cfg := writeFile(t, "config.yaml", "store:\n  backend: memory\n  seed_file: "+seed+"\n")

	out, err := execute(t, "--config", cfg, "station", "near", "--lng", "2.35", "--lat", "48.85", "--max-km", "5")
	require.NoError(t, err)
	var stations []model.Station
	require.NoError(t, json.Unmarshal([]byte(out), &stations))
	require.Len(t, stations, 1)
	assert.Equal(t, "near", stations[0].ID)
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	cfg := writeFile(t, "config.yaml", `
mqtt:
  password: hunter2
routing:
  api_key: ors-key
http:
  addr: ":9090"
`)
	out, err := execute(t, "--config", cfg, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "ors-key")

	var shown struct {
		HTTP struct {
			Addr string `json:"addr"`
		} `json:"http"`
		Routing struct {
			APIKey  string `json:"api_key"`
			Profile string `json:"profile"`
		} `json:"routing"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, ":9090", shown.HTTP.Addr)
	assert.Equal(t, redacted, shown.Routing.APIKey)
	assert.Equal(t, "driving-car", shown.Routing.Profile)
}

func TestConfigShowInvalid(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "store:\n  backend: cassandra\n")
	_, err := execute(t, "--config", cfg, "config", "show")
	assert.Error(t, err)
}
