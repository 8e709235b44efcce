// Package tracker follows the sun across the horizon for one observer. It
// caches the day's sunrise and sunset, recomputes them when the calendar
// day rolls over, and reports each sunrise and sunset exactly once.
package tracker

import (
	"encoding/json"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/location"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/sunset"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/timetricks"
)

// Ephemeris is the astronomy the tracker depends on. sunset.Sky
// implements it.
type Ephemeris interface {
	Position(place sunset.Place, t time.Time) sunset.Angles
	MoonPhase(t time.Time) float64
	DayBounds(place sunset.Place, date timetricks.Date) (rise, set time.Time, err error)
}

// Transition is the horizon edge crossed during a refresh, if any.
type Transition int

const (
	None Transition = iota
	Sunrise
	Sunset
)

func (t Transition) String() string {
	switch t {
	case Sunrise:
		return "Sunrise"
	case Sunset:
		return "Sunset"
	default:
		return "None"
	}
}

func (t Transition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Transition) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Sunrise":
		*t = Sunrise
	case "Sunset":
		*t = Sunset
	default:
		*t = None
	}
	return nil
}

// State is the tracker's cached view of the current day. Sunrise and
// Sunset are only meaningful for Day.
type State struct {
	Day          timetricks.Date
	Sunrise      time.Time
	Sunset       time.Time
	AboveHorizon bool
}

// Report is the result of one refresh. Angles are rounded to two decimals.
type Report struct {
	Time time.Time `json:"time"`
	sunset.Angles
	MoonPhase    float64    `json:"moon_phase"`
	AboveHorizon bool       `json:"above_horizon"`
	Sunrise      time.Time  `json:"sunrise"`
	Sunset       time.Time  `json:"sunset"`
	Transition   Transition `json:"transition"`
	// Err is set when sunrise and sunset could not be computed this cycle.
	Err error `json:"-"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	out := struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain: plain(r)}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Tracker owns the solar state for the configured location.
//
// Configure may be called from any goroutine; the location is swapped
// atomically. Refresh mutates the cached state without locking and must
// not be called concurrently with itself.
type Tracker struct {
	eph Ephemeris
	cfg atomic.Pointer[location.Config]

	state State
	// owner is the config the state was computed for.
	owner *location.Config
	// known is set once Sunrise and Sunset hold a computed day.
	known bool
	// classified is set once AboveHorizon reflects a real comparison.
	classified bool
}

func New(eph Ephemeris) *Tracker {
	return &Tracker{eph: eph}
}

// Configure installs a validated location. Configuring the same location
// again is a no-op. A new location takes effect on the next Refresh, which
// recomputes the day and classifies the horizon without reporting a
// transition.
func (t *Tracker) Configure(cfg location.Config) (changed bool) {
	if old := t.cfg.Load(); old != nil && old.Equal(cfg) {
		return false
	}
	t.cfg.Store(&cfg)
	return true
}

// Reset removes the location; Refresh is a no-op until Configure is called
// again.
func (t *Tracker) Reset() {
	t.cfg.Store(nil)
}

// Location returns the configured location, if any.
func (t *Tracker) Location() (location.Config, bool) {
	cfg := t.cfg.Load()
	if cfg == nil {
		return location.Config{}, false
	}
	return *cfg, true
}

// State returns a copy of the cached state.
func (t *Tracker) State() State {
	return t.state
}

// Refresh computes the sun's position at now, rolls the cached day over if
// needed and detects horizon crossings. It returns false when no location
// has been configured.
func (t *Tracker) Refresh(now time.Time) (Report, bool) {
	cfg := t.cfg.Load()
	if cfg == nil {
		return Report{}, false
	}
	if cfg != t.owner {
		t.owner = cfg
		t.state = State{}
		t.known = false
		t.classified = false
	}
	place := cfg.Place()

	angles := t.eph.Position(place, now)
	r := Report{
		Time: now,
		Angles: sunset.Angles{
			Azimuth:   round2(angles.Azimuth),
			Elevation: round2(angles.Elevation),
			Zenith:    round2(angles.Zenith),
		},
		MoonPhase: round2(t.eph.MoonPhase(now)),
	}

	if err := t.rollover(place, timetricks.DateIn(now, cfg.Timezone)); err != nil {
		log.Printf("Failed to compute sunrise and sunset: %v", err)
		r.Err = err
	} else {
		r.Transition = t.detect(now)
	}

	r.AboveHorizon = t.state.AboveHorizon
	r.Sunrise, r.Sunset = t.state.Sunrise, t.state.Sunset
	return r, true
}

// rollover recomputes sunrise and sunset when today differs from the
// cached day. On failure the previous values are kept.
func (t *Tracker) rollover(place sunset.Place, today timetricks.Date) error {
	if t.known && t.state.Day == today {
		return nil
	}
	rise, set, err := t.eph.DayBounds(place, today)
	if err != nil {
		return err
	}
	if t.known {
		log.Printf("It's a new day! Sunrise %s, sunset %s", rise.Format(time.Kitchen), set.Format(time.Kitchen))
	}
	t.state.Day = today
	t.state.Sunrise = rise
	t.state.Sunset = set
	t.known = true
	return nil
}

// detect compares now against [sunrise, sunset) and reports the edge. The
// first comparison after a new location only sets the flag.
func (t *Tracker) detect(now time.Time) Transition {
	above := !now.Before(t.state.Sunrise) && now.Before(t.state.Sunset)
	if !t.classified {
		t.classified = true
		t.state.AboveHorizon = above
		return None
	}
	switch {
	case above && !t.state.AboveHorizon:
		t.state.AboveHorizon = true
		return Sunrise
	case !above && t.state.AboveHorizon:
		t.state.AboveHorizon = false
		return Sunset
	}
	return None
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
