package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evnav/app"
	"github.com/kilianp07/evnav/config"
	"github.com/kilianp07/evnav/core/model"
)

var (
	stationLng   float64
	stationLat   float64
	stationMaxKm float64
	stationLimit int
)

var stationCmd = &cobra.Command{
	Use:   "station",
	Short: "Charging station queries",
}

var stationNearCmd = &cobra.Command{
	Use:   "near",
	Short: "List the stations closest to a point",
	RunE:  runStationNear,
}

func init() {
	f := stationNearCmd.Flags()
	f.Float64Var(&stationLng, "lng", 0, "longitude")
	f.Float64Var(&stationLat, "lat", 0, "latitude")
	f.Float64Var(&stationMaxKm, "max-km", 10, "search radius in kilometers")
	f.IntVar(&stationLimit, "limit", 10, "maximum number of stations (0 for all)")
	_ = stationNearCmd.MarkFlagRequired("lng")
	_ = stationNearCmd.MarkFlagRequired("lat")
	stationCmd.AddCommand(stationNearCmd)
	rootCmd.AddCommand(stationCmd)
}

func runStationNear(cmd *cobra.Command, args []string) error {
	p := model.NewPoint(stationLng, stationLat)
	if err := p.Validate(); err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	stores, err := app.OpenStores(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer stores.Close()

	stations, err := stores.Stations.FindNear(ctx, p, stationMaxKm*1000, stationLimit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(stations)
}
