package sunset

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/keep94/sunrise"
	gosunrise "github.com/nathan-osman/go-sunrise"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/timetricks"
)

const (
	day = 24 * time.Hour

	// horizonAltitude is the geometric altitude of the sun's center at
	// sunrise and sunset, allowing for refraction and the solar disc.
	horizonAltitude = -0.833
	sampleStep      = 15 * time.Minute

	earthRadius   = 6356900.0 // meters
	maxDipShift   = time.Hour
	minAltPerMin  = 1e-3 // degrees per minute
	boundsMargin  = 12 * time.Hour
	maxDayAdjusts = 2
)

// ErrNoSunrise is returned when the sun does not rise or does not set on a
// date, as in polar day and polar night.
var ErrNoSunrise = errors.New("sun does not cross the horizon")

// Algorithm selects the library that computes sunrise and sunset.
type Algorithm string

const (
	Keep94    Algorithm = "keep94"
	GoSunrise Algorithm = "gosunrise"
)

func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case Keep94, GoSunrise:
		return a, nil
	case "":
		return Keep94, nil
	default:
		return "", fmt.Errorf("unknown sunrise algorithm %q", s)
	}
}

// DayBounds returns sunrise and sunset on the given calendar date at place,
// in the place's time zone.
func DayBounds(alg Algorithm, place Place, date timetricks.Date) (rise, set time.Time, err error) {
	loc := place.loc()
	switch alg {
	case GoSunrise:
		rise, set = goSunriseBounds(place, date)
	default:
		rise, set = keep94Bounds(place, date)
	}

	// Solar noon and the midnights around it are where a short day or a
	// short night peaks, so check them as well as the regular samples.
	var probes []time.Time
	if !rise.IsZero() && !set.IsZero() {
		noon := rise.Add(set.Sub(rise) / 2)
		probes = append(probes, noon, noon.Add(-day/2), noon.Add(day/2))
	}
	if !crossesHorizon(place, date, probes...) {
		return time.Time{}, time.Time{}, fmt.Errorf("%s at %s: %w", date, place, ErrNoSunrise)
	}
	if err := checkBounds(rise, set, date.Midnight(loc)); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%s at %s: %w", date, place, err)
	}

	rise, set = adjustForElevation(place, rise, set)
	return rise.In(loc), set.In(loc), nil
}

func keep94Bounds(place Place, date timetricks.Date) (time.Time, time.Time) {
	loc := place.loc()
	var s sunrise.Sunrise
	s.Around(place.Lat, place.Long, date.Noon(loc))

	// Around picks the closest pair, which is not always the one on our
	// calendar day.
	for i := 0; i < maxDayAdjusts; i++ {
		got := timetricks.DateIn(s.Sunrise(), loc)
		if got == date {
			break
		}
		if got.Before(date) {
			s.AddDays(1)
		} else {
			s.AddDays(-1)
		}
	}
	return s.Sunrise(), s.Sunset()
}

func goSunriseBounds(place Place, date timetricks.Date) (time.Time, time.Time) {
	// go-sunrise works on the UTC day, so find the local day's noon in UTC.
	noon := date.Noon(place.loc()).UTC()
	return gosunrise.SunriseSunset(place.Lat, place.Long, noon.Year(), noon.Month(), noon.Day())
}

func checkBounds(rise, set, midnight time.Time) error {
	switch {
	case rise.IsZero() || set.IsZero():
		return ErrNoSunrise
	case !rise.Before(set), set.Sub(rise) >= day:
		return fmt.Errorf("sunrise %v not before sunset %v: %w", rise, set, ErrNoSunrise)
	case rise.Before(midnight.Add(-boundsMargin)), set.After(midnight.Add(day + boundsMargin)):
		return fmt.Errorf("bounds %v..%v too far from %v: %w", rise, set, midnight, ErrNoSunrise)
	}
	return nil
}

// dayWindow is the local day of date, 23 or 25 hours long when the
// clocks change.
func dayWindow(place Place, date timetricks.Date) (start, end time.Time) {
	loc := place.loc()
	return date.Midnight(loc), date.AddDays(1).Midnight(loc)
}

// crossesHorizon reports whether the sun is both above and below the
// horizon during the local day, sampling it and then each probe.
func crossesHorizon(place Place, date timetricks.Date, probes ...time.Time) bool {
	start, end := dayWindow(place, date)
	var above, below bool
	check := func(t time.Time) bool {
		if Position(place, t).Elevation > horizonAltitude {
			above = true
		} else {
			below = true
		}
		return above && below
	}
	for t := start; t.Before(end); t = t.Add(sampleStep) {
		if check(t) {
			return true
		}
	}
	for _, t := range probes {
		if check(t) {
			return true
		}
	}
	return false
}

// horizonDip is how far below the astronomical horizon an observer at
// elevation meters can see, in degrees.
func horizonDip(elevation int) float64 {
	if elevation <= 0 {
		return 0
	}
	h := float64(elevation)
	return degrees(math.Acos(earthRadius / (earthRadius + h)))
}

// adjustForElevation widens the day by the time the sun takes to travel
// through the horizon dip.
func adjustForElevation(place Place, rise, set time.Time) (time.Time, time.Time) {
	dip := horizonDip(place.Elevation)
	if dip == 0 {
		return rise, set
	}
	return rise.Add(-dipShift(place, rise, dip)), set.Add(dipShift(place, set, dip))
}

func dipShift(place Place, t time.Time, dip float64) time.Duration {
	before := Position(place, t.Add(-30*time.Second)).Elevation
	after := Position(place, t.Add(30*time.Second)).Elevation
	rate := math.Abs(after - before)
	if rate < minAltPerMin {
		return maxDipShift
	}
	shift := time.Duration(dip / rate * float64(time.Minute))
	if shift > maxDipShift {
		return maxDipShift
	}
	return shift
}

// GetSunEvents returns a list of ordered sun events from the starting day
// through the given duration in the given place, using the default
// algorithm. Days on which the sun does not rise or set are skipped.
func GetSunEvents(start time.Time, duration time.Duration, place Place) SunEvents {
	return Sky{}.SunEvents(start, duration, place)
}
