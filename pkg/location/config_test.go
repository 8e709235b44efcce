package location

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	table := []struct {
		name   string
		params map[string]string
		want   Config
	}{{
		name:   "defaults elevation",
		params: map[string]string{"latitude": "40.0", "longitude": "-74.0"},
		want:   Config{Latitude: 40, Longitude: -74, Timezone: time.UTC},
	}, {
		name:   "with elevation",
		params: map[string]string{"latitude": " 36.9741", "longitude": "-122.0308 ", "elevation": "12"},
		want:   Config{Latitude: 36.9741, Longitude: -122.0308, Elevation: 12, Timezone: time.UTC},
	}, {
		name:   "range limits",
		params: map[string]string{"latitude": "-90", "longitude": "180", "elevation": ""},
		want:   Config{Latitude: -90, Longitude: 180, Timezone: time.UTC},
	}}

	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.params, time.UTC)
			if err != nil {
				t.Fatalf("unexpected: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("got %+v, wanted %+v", got, tc.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	table := []struct {
		name    string
		params  map[string]string
		notices map[string]string
	}{{
		name:   "nothing",
		params: nil,
		notices: map[string]string{
			"latitude":  "Please specify latitude configuration parameter",
			"longitude": "Please specify longitude configuration parameter",
		},
	}, {
		name:   "missing longitude",
		params: map[string]string{"latitude": "40"},
		notices: map[string]string{
			"longitude": "Please specify longitude configuration parameter",
		},
	}, {
		name:   "bad numbers",
		params: map[string]string{"latitude": "north", "longitude": "-190"},
		notices: map[string]string{
			"latitude":  `Configuration parameter latitude "north" is not valid: not a number`,
			"longitude": `Configuration parameter longitude "-190" is not valid: must be between -180 and 180`,
		},
	}, {
		name:   "nan",
		params: map[string]string{"latitude": "NaN", "longitude": "0"},
		notices: map[string]string{
			"latitude": `Configuration parameter latitude "NaN" is not valid: must be between -90 and 90`,
		},
	}, {
		name:   "bad elevation",
		params: map[string]string{"latitude": "1", "longitude": "2", "elevation": "-3"},
		notices: map[string]string{
			"elevation": `Configuration parameter elevation "-3" is not valid: must not be negative`,
		},
	}}

	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.params, time.UTC)
			if err == nil {
				t.Fatalf("expected an error")
			}
			got := map[string]string{}
			for _, pe := range ParamErrors(err) {
				got[pe.Key] = pe.Notice()
			}
			if diff := cmp.Diff(tc.notices, got); diff != "" {
				t.Errorf("wrong notices (-want,+got):\n%s", diff)
			}
		})
	}
}

func TestParseErrorKinds(t *testing.T) {
	_, err := Parse(map[string]string{"longitude": "x"}, nil)
	if !errors.Is(err, ErrMissing) {
		t.Errorf("%v is not ErrMissing", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("%v is not ErrInvalid", err)
	}
	var keys []string
	for _, pe := range ParamErrors(err) {
		keys = append(keys, pe.Key)
	}
	sort.Strings(keys)
	if diff := cmp.Diff([]string{"latitude", "longitude"}, keys); diff != "" {
		t.Errorf("wrong keys (-want,+got):\n%s", diff)
	}
}

func TestParseIdempotent(t *testing.T) {
	params := map[string]string{"latitude": "40", "longitude": "-74", "elevation": "5"}
	first, err := Parse(params, time.UTC)
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	second, err := Parse(first.Params(), time.UTC)
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if !first.Equal(second) {
		t.Errorf("reparse changed config: %+v != %+v", first, second)
	}
	if p := first.Place(); p.Lat != 40 || p.Long != -74 || p.Elevation != 5 || p.Location != time.UTC {
		t.Errorf("bad place %+v", p)
	}
}
