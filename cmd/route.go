package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/playback"
	"github.com/kilianp07/evnav/infra/routing/ors"
)

var (
	routeFile string
	routeMode string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Route utilities",
}

var routePlaybackCmd = &cobra.Command{
	Use:   "playback",
	Short: "Print the movement points a navigation on a route would play",
	RunE:  runRoutePlayback,
}

func init() {
	routePlaybackCmd.Flags().StringVarP(&routeFile, "file", "f", "", "route file: directions GeoJSON or a stored route document")
	routePlaybackCmd.Flags().StringVar(&routeMode, "mode", string(playback.ModeVertex), "interpolation mode (vertex|distance)")
	_ = routePlaybackCmd.MarkFlagRequired("file")
	routeCmd.AddCommand(routePlaybackCmd)
	rootCmd.AddCommand(routeCmd)
}

func runRoutePlayback(cmd *cobra.Command, args []string) error {
	mode, err := playback.ParseMode(routeMode)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(routeFile)
	if err != nil {
		return err
	}
	route, err := decodeRoute(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", routeFile, err)
	}
	points := playback.Builder{Mode: mode}.Build(route.Geometry, route.Duration)
	return writePoints(cmd.OutOrStdout(), points)
}

// decodeRoute accepts a directions FeatureCollection as well as a route as
// returned by the API.
func decodeRoute(data []byte) (model.Route, error) {
	if bytes.Contains(data, []byte(`"features"`)) {
		return ors.Decode(data)
	}
	var r model.Route
	if err := json.Unmarshal(data, &r); err != nil {
		return model.Route{}, err
	}
	if len(r.Geometry) == 0 {
		return model.Route{}, fmt.Errorf("route has no geometry")
	}
	return r, nil
}

func writePoints(w io.Writer, points []model.Point) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(points)
}
