// Command suntable prints upcoming sunrises and sunsets for a location.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/location"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/sunset"
)

func main() {
	lat := flag.String("lat", "", "latitude in degrees, north positive")
	lon := flag.String("lon", "", "longitude in degrees, east positive")
	elevation := flag.String("elevation", "0", "meters above sea level")
	days := flag.Int("days", 14, "number of days to print")
	tzName := flag.String("tz", "", "IANA time zone, local time if empty")
	alg := flag.String("algorithm", "keep94", "sunrise algorithm, keep94 or gosunrise")
	flag.Parse()

	tz := time.Local
	if *tzName != "" {
		var err error
		if tz, err = time.LoadLocation(*tzName); err != nil {
			fmt.Fprintf(os.Stderr, "bad time zone: %v\n", err)
			os.Exit(2)
		}
	}
	cfg, err := location.Parse(map[string]string{
		location.Latitude:  *lat,
		location.Longitude: *lon,
		location.Elevation: *elevation,
	}, tz)
	if err != nil {
		for _, pe := range location.ParamErrors(err) {
			fmt.Fprintln(os.Stderr, pe.Notice())
		}
		os.Exit(2)
	}
	a, err := sunset.ParseAlgorithm(*alg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	sky := sunset.Sky{Algorithm: a}
	place := cfg.Place()
	for _, ev := range sky.SunEvents(time.Now(), time.Duration(*days)*24*time.Hour, place) {
		pos := sky.Position(place, ev.Time)
		fmt.Printf("%s %-7s azimuth %6.2f\n", ev.Time.Format(time.RFC822), ev.Event, pos.Azimuth)
	}
}
