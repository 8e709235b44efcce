package visualize

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/sunset"
)

var place = sunset.Place{Lat: 40, Long: -74, Location: time.UTC}

func flatSun(el float64) func(sunset.Place, time.Time) sunset.Angles {
	return func(sunset.Place, time.Time) sunset.Angles {
		return sunset.Angles{Elevation: el}
	}
}

func TestEncode(t *testing.T) {
	day := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	events := sunset.SunEvents{
		{Time: day.Add(6 * time.Hour), Event: sunset.Sunrise},
		{Time: day.Add(18 * time.Hour), Event: sunset.Sunset},
	}
	img := NewDaylight(place, events)
	img.position = flatSun(10)
	img.SetDate(day.Add(9 * time.Hour))

	var b bytes.Buffer
	if _, err := img.Encode(&b); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	svg := b.String()
	for _, want := range []string{
		`<svg viewBox="0 0 1200 300"`,
		`<rect class="daytime" fill="lightyellow" x="300" y="0" width="600" height="300"/>`,
		`<rect class="night" fill="blue" fill-opacity="25%" x="0" y="0" width="300" height="300"/>`,
		`<rect class="night" fill="blue" fill-opacity="25%" x="900" y="0" width="300" height="300"/>`,
		`0,134 `,
		`1200,134 "/>`,
		`</svg>`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("missing %q in %s", want, svg)
		}
	}
}

func TestEncodePolar(t *testing.T) {
	table := []struct {
		name  string
		el    float64
		want  string
		night bool
	}{
		{"midnight sun", 5, `width="1200"`, false},
		{"polar night", -5, `width="0"`, true},
	}
	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			img := NewDaylight(place, nil)
			img.position = flatSun(tc.el)
			img.SetDate(time.Date(2021, time.June, 21, 12, 0, 0, 0, time.UTC))

			var b bytes.Buffer
			if _, err := img.Encode(&b); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			svg := b.String()
			if !strings.Contains(svg, `<rect class="daytime" fill="lightyellow" x="0" y="0" `+tc.want) {
				t.Errorf("daytime rect wrong in %s", svg)
			}
			if got := strings.Contains(svg, `class="night"`); got != tc.night {
				t.Errorf("night shading = %v, wanted %v", got, tc.night)
			}
		})
	}
}

func TestEncodeWithoutDate(t *testing.T) {
	img := NewDaylight(place, nil)
	if _, err := img.Encode(&bytes.Buffer{}); err == nil {
		t.Errorf("expected an error")
	}
}
