// Package visualize draws small SVG charts of the sun's day.
package visualize

import (
	"fmt"
	"io"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/sunset"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/timetricks"
)

const (
	width  = 1200
	height = 300

	// step between points of the elevation curve.
	step = 15 * time.Minute
)

// Daylight is a one day chart: daytime between sunrise and sunset, night
// shading on either side and the sun's elevation as a curve.
type Daylight struct {
	place      sunset.Place
	start, end time.Time
	sunEvents  sunset.SunEvents
	position   func(sunset.Place, time.Time) sunset.Angles
}

func NewDaylight(place sunset.Place, sunEvents sunset.SunEvents) *Daylight {
	return &Daylight{
		place:     place,
		sunEvents: sunEvents,
		position:  sunset.Position,
	}
}

// SetDate picks the local day containing t.
func (img *Daylight) SetDate(t time.Time) {
	loc := img.place.Location
	if loc == nil {
		loc = time.UTC
	}
	d := timetricks.DateIn(t, loc)
	img.start = d.Midnight(loc)
	img.end = d.AddDays(1).Midnight(loc)
}

func (img *Daylight) Encode(w io.Writer) (int, error) {
	var n int
	var err error
	io := func(nextn int, nexterr error) {
		n += nextn
		if nexterr != nil {
			err = nexterr
		}
	}
	if img.start.IsZero() {
		return 0, fmt.Errorf("no date set")
	}

	io(fmt.Fprintf(w, `<svg viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`, width, height))

	risex, setx, ok := img.daytime()
	if !ok {
		// No sunrise today; the sun is up or down all day.
		risex, setx = 0, 0
		if img.position(img.place, img.start.Add(12*time.Hour)).Elevation > 0 {
			setx = width
		}
	}
	io(fmt.Fprintf(w, `<rect class="daytime" fill="lightyellow" x="%d" y="%d" width="%d" height="%d"/>`,
		risex, 0,
		setx-risex, height))

	// Horizon.
	io(fmt.Fprintf(w, `<line class="horizon" stroke="gray" x1="0" y1="%d" x2="%d" y2="%d"/>`,
		elevationToY(0), width, elevationToY(0)))

	io(fmt.Fprintf(w, `<polyline class="elevation" fill="none" stroke="orange" stroke-width="3" points="`))
	for t := img.start; !t.After(img.end); t = t.Add(step) {
		el := img.position(img.place, t).Elevation
		io(fmt.Fprintf(w, "%d,%d ", img.timeToX(t), elevationToY(el)))
	}
	io(fmt.Fprintf(w, `"/>`))

	// Night shadows.
	if risex > 0 {
		io(fmt.Fprintf(w, `<rect class="night" fill="blue" fill-opacity="25%%" x="%d" y="%d" width="%d" height="%d"/>`,
			0, 0,
			risex, height))
	}
	if setx < width {
		io(fmt.Fprintf(w, `<rect class="night" fill="blue" fill-opacity="25%%" x="%d" y="%d" width="%d" height="%d"/>`,
			setx, 0,
			width-setx, height))
	}

	io(fmt.Fprintf(w, `<text class="unixtime" visibility="hidden">%d</text>`, img.start.Unix()))
	io(fmt.Fprintf(w, `</svg>`))

	return n, err
}

// daytime returns the x range of the first sunrise of the day and the
// sunset after it.
func (img *Daylight) daytime() (risex, setx int, ok bool) {
	for i := 0; i+1 < len(img.sunEvents); i++ {
		rise, set := img.sunEvents[i], img.sunEvents[i+1]
		if rise.Event != sunset.Sunrise || set.Event != sunset.Sunset {
			continue
		}
		if rise.Time.Before(img.start) || !rise.Time.Before(img.end) {
			continue
		}
		setx = img.timeToX(set.Time)
		if setx > width {
			setx = width
		}
		return img.timeToX(rise.Time), setx, true
	}
	return 0, 0, false
}

// elevationToY maps -90..90 degrees onto the chart, zenith at the top.
func elevationToY(el float64) int {
	return height/2 - int(el*float64(height/2)/90)
}

func (img *Daylight) timeToX(t time.Time) int {
	return int(int64(width) * int64(t.Sub(img.start)) / int64(img.end.Sub(img.start)))
}
