package cli

import (
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/speedhive-tools/internal/filter"
)

var (
	flagFilterClasses []string
	flagFilterTracks  []string
	flagFilterDrivers []string
	flagFilterDates   string
	flagFilterMaxLap  string
)

// addFilterFlags registers the record filter flags on cmd
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&flagFilterClasses, "class", nil, "Only include these classes (repeatable)")
	cmd.Flags().StringSliceVar(&flagFilterTracks, "track", nil, "Only include tracks containing this text (repeatable)")
	cmd.Flags().StringSliceVar(&flagFilterDrivers, "driver", nil, "Only include drivers containing this text (repeatable)")
	cmd.Flags().StringVar(&flagFilterDates, "dates", "", "Only include records dated in this range (2021, 2019-2021, Jun 2021, 2021-06-01..2021-06-30)")
	cmd.Flags().StringVar(&flagFilterMaxLap, "max-lap-time", "", "Only include lap times at or under this (1:20 or 80.5)")
}

// buildFilter creates a record filter from the filter flags
func buildFilter() (*filter.Filter, error) {
	f := filter.NewFilter()
	f.Classes = append(f.Classes, flagFilterClasses...)
	f.Tracks = append(f.Tracks, flagFilterTracks...)
	f.Drivers = append(f.Drivers, flagFilterDrivers...)

	if flagFilterDates != "" {
		from, to, err := filter.ParseDateRange(flagFilterDates)
		if err != nil {
			return nil, err
		}
		f.DateFrom, f.DateTo = from, to
	}

	maxLap, err := filter.ParseMaxLapTime(flagFilterMaxLap)
	if err != nil {
		return nil, err
	}
	f.MaxLapTime = maxLap

	return f, nil
}
