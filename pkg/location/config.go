// Package location parses and validates the observer location supplied by
// the controller as custom configuration parameters.
package location

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	cerrors "cloudeng.io/errors"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/sunset"
)

// Custom parameter keys.
const (
	Latitude  = "latitude"
	Longitude = "longitude"
	Elevation = "elevation"
)

var (
	ErrMissing = errors.New("missing parameter")
	ErrInvalid = errors.New("invalid parameter")
)

// ParamError describes a single bad parameter. Key doubles as the stable
// identifier of the notice shown to the user.
type ParamError struct {
	Key    string
	Value  string
	Reason error // ErrMissing or ErrInvalid
	Detail string
}

func (e *ParamError) Error() string {
	if e.Reason == ErrMissing {
		return fmt.Sprintf("%s: %v", e.Key, e.Reason)
	}
	return fmt.Sprintf("%s %q: %v: %s", e.Key, e.Value, e.Reason, e.Detail)
}

func (e *ParamError) Unwrap() error {
	return e.Reason
}

// Notice is the text shown to the user on the controller.
func (e *ParamError) Notice() string {
	if e.Reason == ErrMissing {
		return fmt.Sprintf("Please specify %s configuration parameter", e.Key)
	}
	return fmt.Sprintf("Configuration parameter %s %q is not valid: %s", e.Key, e.Value, e.Detail)
}

// ParamErrors returns every ParamError contained in err.
func ParamErrors(err error) []*ParamError {
	if m, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*ParamError
		for _, e := range m.Unwrap() {
			out = append(out, ParamErrors(e)...)
		}
		return out
	}
	var pe *ParamError
	if errors.As(err, &pe) {
		return []*ParamError{pe}
	}
	return nil
}

// Config is a validated observer location. It is immutable; a change of
// parameters produces a new Config.
type Config struct {
	Latitude  float64
	Longitude float64
	Elevation int
	Timezone  *time.Location
}

// Parse validates the custom parameters. Latitude and longitude are
// required; elevation defaults to 0. All problems are reported together.
func Parse(params map[string]string, tz *time.Location) (Config, error) {
	if tz == nil {
		tz = time.Local
	}
	cfg := Config{Timezone: tz}
	errs := &cerrors.M{}

	lat, err := parseCoordinate(params, Latitude, 90)
	errs.Append(err)
	cfg.Latitude = lat

	long, err := parseCoordinate(params, Longitude, 180)
	errs.Append(err)
	cfg.Longitude = long

	elev, err := parseElevation(params)
	errs.Append(err)
	cfg.Elevation = elev

	if err := errs.Err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func lookup(params map[string]string, key string) (string, bool) {
	v, ok := params[key]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func parseCoordinate(params map[string]string, key string, limit float64) (float64, error) {
	raw, ok := lookup(params, key)
	if !ok {
		return 0, &ParamError{Key: key, Reason: ErrMissing}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ParamError{key, raw, ErrInvalid, "not a number"}
	}
	if math.IsNaN(f) || f < -limit || f > limit {
		return 0, &ParamError{key, raw, ErrInvalid, fmt.Sprintf("must be between %g and %g", -limit, limit)}
	}
	return f, nil
}

func parseElevation(params map[string]string) (int, error) {
	raw, ok := lookup(params, Elevation)
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ParamError{Elevation, raw, ErrInvalid, "not a whole number of meters"}
	}
	if n < 0 {
		return 0, &ParamError{Elevation, raw, ErrInvalid, "must not be negative"}
	}
	return n, nil
}

// Equal reports whether two configs describe the same observer.
func (c Config) Equal(o Config) bool {
	return c.Latitude == o.Latitude &&
		c.Longitude == o.Longitude &&
		c.Elevation == o.Elevation &&
		c.zone() == o.zone()
}

func (c Config) zone() string {
	if c.Timezone == nil {
		return ""
	}
	return c.Timezone.String()
}

// Place converts the config for the astronomy package.
func (c Config) Place() sunset.Place {
	return sunset.Place{
		Lat:       c.Latitude,
		Long:      c.Longitude,
		Elevation: c.Elevation,
		Location:  c.Timezone,
	}
}

// Params renders the config back to custom parameters.
func (c Config) Params() map[string]string {
	return map[string]string{
		Latitude:  strconv.FormatFloat(c.Latitude, 'f', -1, 64),
		Longitude: strconv.FormatFloat(c.Longitude, 'f', -1, 64),
		Elevation: strconv.Itoa(c.Elevation),
	}
}
