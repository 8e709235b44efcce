package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/controller"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/data"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/location"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/sunset"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/timetricks"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/tracker"
)

var now = time.Date(2021, time.March, 1, 12, 0, 0, 0, time.UTC)

type fixedStatus controller.Status

func (s fixedStatus) Status() controller.Status { return controller.Status(s) }

type fakeHistory struct {
	rows []data.Transition
	err  error
}

func (h *fakeHistory) Recent(ctx context.Context, limit int) ([]data.Transition, error) {
	if len(h.rows) > limit {
		return h.rows[:limit], h.err
	}
	return h.rows, h.err
}

func configuredStatus() fixedStatus {
	return fixedStatus{
		Day: tracker.State{
			Day:     timetricks.Date{Year: 2021, Month: time.March, Day: 1},
			Sunrise: now.Add(-5 * time.Hour),
			Sunset:  now.Add(6 * time.Hour),
		},
		Location:   location.Config{Latitude: 40, Longitude: -74, Timezone: time.UTC},
		Configured: true,
		Report: tracker.Report{
			Time:      now,
			Angles:    sunset.Angles{Azimuth: 180.5, Elevation: 40.25, Zenith: 49.75},
			MoonPhase: 16.5,
		},
		HasReport: true,
	}
}

func newRouter(s StatusSource, h TransitionLog) *mux.Router {
	r := mux.NewRouter()
	Register(r, Options{
		Status:  s,
		History: h,
		Now:     func() time.Time { return now },
	})
	return r
}

func get(r http.Handler, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestUnconfigured(t *testing.T) {
	r := newRouter(fixedStatus{}, nil)
	for _, url := range []string{"/api/v1/state", "/api/v1/sunevents", "/daylight.svg"} {
		if rec := get(r, url); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: got %d, wanted 503", url, rec.Code)
		}
	}

	rec := get(r, "/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Waiting for latitude and longitude") {
		t.Errorf("bad index: %d %s", rec.Code, rec.Body)
	}
	if rec := get(r, "/api/v1/transitions"); rec.Code != http.StatusNotFound {
		t.Errorf("transitions without history: got %d, wanted 404", rec.Code)
	}
}

func TestState(t *testing.T) {
	r := newRouter(configuredStatus(), nil)
	rec := get(r, "/api/v1/state")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body)
	}
	var got struct {
		Latitude  float64
		Longitude float64
		Timezone  string
		Day       struct {
			Date    string
			Sunrise time.Time
		}
		Report struct {
			Azimuth   float64
			Elevation float64
			MoonPhase float64 `json:"moon_phase"`
		}
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if got.Latitude != 40 || got.Longitude != -74 || got.Timezone != "UTC" {
		t.Errorf("wrong location %+v", got)
	}
	if got.Day.Date != "2021-03-01" || !got.Day.Sunrise.Equal(now.Add(-5*time.Hour)) {
		t.Errorf("wrong day %+v", got.Day)
	}
	if got.Report.Azimuth != 180.5 || got.Report.Elevation != 40.25 || got.Report.MoonPhase != 16.5 {
		t.Errorf("wrong report %+v", got.Report)
	}
}

func TestSunEvents(t *testing.T) {
	r := newRouter(configuredStatus(), nil)

	rec := get(r, "/api/v1/sunevents?days=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body)
	}
	lines := strings.Split(rec.Body.String(), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, wanted 4: %q", len(lines), lines)
	}
	for i, l := range lines {
		want := "Sunrise"
		if i%2 == 1 {
			want = "Sunset"
		}
		if !strings.HasSuffix(l, want) {
			t.Errorf("line %d %q, wanted a %s", i, l, want)
		}
	}

	rec = get(r, "/api/v1/sunevents?days=2&o=json")
	var events []struct {
		Time  time.Time
		Event string
	}
	if err := json.NewDecoder(rec.Body).Decode(&events); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	var kinds []string
	for _, e := range events {
		kinds = append(kinds, e.Event)
	}
	if diff := cmp.Diff([]string{"Sunrise", "Sunset", "Sunrise", "Sunset"}, kinds); diff != "" {
		t.Errorf("wrong events (-want,+got):\n%s", diff)
	}

	// Cached responses are identical.
	first := get(r, "/api/v1/sunevents").Body.String()
	if second := get(r, "/api/v1/sunevents").Body.String(); first != second {
		t.Errorf("cached response differs")
	}
	if n := len(strings.Split(first, "\n")); n != 2*defaultDays {
		t.Errorf("default range has %d events, wanted %d", n, 2*defaultDays)
	}
}

func TestSunEventsNewDay(t *testing.T) {
	clock := time.Date(2021, time.March, 1, 23, 30, 0, 0, time.UTC)
	r := mux.NewRouter()
	Register(r, Options{
		Status: configuredStatus(),
		Now:    func() time.Time { return clock },
	})

	first := func() string {
		return strings.Split(get(r, "/api/v1/sunevents?days=1").Body.String(), "\n")[0]
	}
	before := first()
	if !strings.HasPrefix(before, "01 Mar 21") {
		t.Fatalf("listing starts %q, wanted 01 Mar 21", before)
	}

	// Well within the cache lifetime, but on the next day.
	clock = clock.Add(time.Hour)
	if after := first(); !strings.HasPrefix(after, "02 Mar 21") {
		t.Errorf("listing after midnight starts %q, wanted 02 Mar 21", after)
	}
}

func TestSunEventsBadDays(t *testing.T) {
	r := newRouter(configuredStatus(), nil)
	for _, days := range []string{"0", "15", "-1", "week"} {
		if rec := get(r, "/api/v1/sunevents?days="+days); rec.Code != http.StatusBadRequest {
			t.Errorf("days=%s: got %d, wanted 400", days, rec.Code)
		}
	}
}

func TestDaylight(t *testing.T) {
	r := newRouter(configuredStatus(), nil)
	rec := get(r, "/daylight.svg")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/svg+xml" {
		t.Errorf("content type %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "<svg") {
		t.Errorf("not an svg: %s", rec.Body)
	}
}

func TestIndex(t *testing.T) {
	r := newRouter(configuredStatus(), nil)

	html := get(r, "/").Body.String()
	for _, want := range []string{"<svg", "Azimuth", "180.50°", "Sunrise"} {
		if !strings.Contains(html, want) {
			t.Errorf("index missing %q", want)
		}
	}

	text := get(r, "/?o=text").Body.String()
	if !strings.HasPrefix(text, "Location (40.0000, -74.0000) 0m UTC\n") {
		t.Errorf("bad summary %q", text)
	}
	if !strings.Contains(text, "Moon phase: 16.50\n") {
		t.Errorf("summary missing moon phase: %q", text)
	}
}

func TestTransitions(t *testing.T) {
	h := &fakeHistory{rows: []data.Transition{
		{Kind: "Sunset", At: now.Add(-time.Hour)},
		{Kind: "Sunrise", At: now.Add(-12 * time.Hour)},
	}}
	r := newRouter(configuredStatus(), h)

	rec := get(r, "/api/v1/transitions?limit=1")
	var rows []data.Transition
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(rows) != 1 || rows[0].Kind != "Sunset" {
		t.Errorf("got %+v", rows)
	}

	h.err = errors.New("db down")
	if rec := get(r, "/api/v1/transitions"); rec.Code != http.StatusInternalServerError {
		t.Errorf("got %d, wanted 500", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	r := newRouter(configuredStatus(), nil)
	get(r, "/api/v1/state")
	body := get(r, "/metrics").Body.String()
	for _, want := range []string{"sunpos_azimuth_degrees", "sunpos_request_latency"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
