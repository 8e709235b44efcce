package sunset

import (
	"fmt"
	"time"
)

// Place is a lat/long coordinate on the Earth matched with its time zone.
// Elevation is meters above sea level.
type Place struct {
	Lat, Long float64
	Elevation int
	Location  *time.Location
}

var (
	SantaCruz = Place{
		36.9741, -122.0308, 0,
		locationOrPanic("America/Los_Angeles"),
	}
)

// loc returns the place's zone, defaulting to UTC.
func (p Place) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p Place) String() string {
	return fmt.Sprintf("(%.4f, %.4f) %dm %s", p.Lat, p.Long, p.Elevation, p.loc())
}

// SunEvents is a time series of SunEvent.
type SunEvents []SunEvent

// SunEvent is a sunrise or sunset event.
type SunEvent struct {
	Time  time.Time `json:"time"`
	Event Event     `json:"event"`
}

func (s *SunEvent) String() string {
	return fmt.Sprintf("%s %s", s.Time.Format(time.RFC822), s.Event)
}

// Event encodes a sunrise or sunset event.
type Event bool

const (
	Sunrise Event = true
	Sunset  Event = false
)

func (e Event) String() string {
	if e == Sunrise {
		return "Sunrise"
	}
	return "Sunset"
}

func (e Event) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Angles is the sun's position as seen from a Place, in degrees. Azimuth is
// measured clockwise from north.
type Angles struct {
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
	Zenith    float64 `json:"zenith"`
}

func locationOrPanic(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
