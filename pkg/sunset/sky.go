package sunset

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/timetricks"
)

// moonCycleDays scales the moon's phase fraction to the 0..27.99 range
// reported to the controller.
const moonCycleDays = 28

// Sky answers position and day bound questions about the sun and moon.
// The zero value uses the Keep94 algorithm.
type Sky struct {
	Algorithm Algorithm
}

func (s Sky) Position(place Place, t time.Time) Angles {
	return Position(place, t)
}

func (s Sky) MoonPhase(t time.Time) float64 {
	return MoonPhase(t)
}

func (s Sky) DayBounds(place Place, date timetricks.Date) (time.Time, time.Time, error) {
	return DayBounds(s.Algorithm, place, date)
}

// SunEvents is GetSunEvents with the receiver's algorithm.
func (s Sky) SunEvents(start time.Time, duration time.Duration, place Place) SunEvents {
	numDays := int(math.Ceil(duration.Hours() / 24))
	first := timetricks.DateIn(start, place.loc())

	ret := make(SunEvents, 0, numDays*2)
	for i := 0; i < numDays; i++ {
		rise, set, err := s.DayBounds(place, first.AddDays(i))
		if err != nil {
			continue
		}
		ret = append(ret, SunEvent{rise, Sunrise}, SunEvent{set, Sunset})
	}
	return ret
}

// Position returns the sun's azimuth, elevation and zenith angle at t.
func Position(place Place, t time.Time) Angles {
	pos := suncalc.GetPosition(t, place.Lat, place.Long)
	el := degrees(pos.Altitude)
	// suncalc measures azimuth from south towards west.
	az := math.Mod(degrees(pos.Azimuth)+180, 360)
	if az < 0 {
		az += 360
	}
	return Angles{
		Azimuth:   az,
		Elevation: el,
		Zenith:    90 - el,
	}
}

// MoonPhase returns the moon's age at t: 0 is new moon, 7 first quarter,
// 14 full moon and 21 last quarter.
func MoonPhase(t time.Time) float64 {
	ill := suncalc.GetMoonIllumination(t)
	return ill.Phase * moonCycleDays
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
