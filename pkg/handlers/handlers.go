package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/cache"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/controller"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/data"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/metrics"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/sunset"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/timetricks"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/tracker"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/visualize"
)

const (
	day         = 24 * time.Hour
	defaultDays = 7
	maxDays     = 14
	cacheTTL    = 1 * time.Hour

	defaultTransitions = 20
	maxTransitions     = 500
)

// StatusSource is implemented by *controller.Controller.
type StatusSource interface {
	Status() controller.Status
}

// TransitionLog is implemented by *data.History.
type TransitionLog interface {
	Recent(ctx context.Context, limit int) ([]data.Transition, error)
}

type Options struct {
	Status StatusSource
	Sky    sunset.Sky
	// History is optional.
	History TransitionLog
	// Now is the clock, time.Now if nil.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func Register(r *mux.Router, opts Options) {
	r.Use(metrics.LatencyHandler)

	r.Handle("/", makeIndexHandler(opts))
	r.Handle("/api/v1/state", makeServeState(opts))
	r.Handle("/api/v1/sunevents", makeServeSunEvents(opts))
	r.Handle("/daylight.svg", makeServeDaylight(opts))
	if opts.History != nil {
		r.Handle("/api/v1/transitions", makeServeTransitions(opts))
	}
	r.Handle("/metrics", metrics.Handler())
}

// configured returns the current status, or writes a 503 and returns false
// when there is no location yet.
func configured(w http.ResponseWriter, src StatusSource) (controller.Status, bool) {
	s := src.Status()
	if !s.Configured {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Location is not configured")
		return s, false
	}
	return s, true
}

type stateResponse struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Elevation int             `json:"elevation"`
	Timezone  string          `json:"timezone"`
	Day       *dayResponse    `json:"day,omitempty"`
	Report    *tracker.Report `json:"report,omitempty"`
}

// dayResponse is the tracker's cached day.
type dayResponse struct {
	Date    string    `json:"date"`
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
}

func newStateResponse(s controller.Status) stateResponse {
	resp := stateResponse{
		Latitude:  s.Location.Latitude,
		Longitude: s.Location.Longitude,
		Elevation: s.Location.Elevation,
	}
	if s.Location.Timezone != nil {
		resp.Timezone = s.Location.Timezone.String()
	}
	if s.HasReport {
		r := s.Report
		resp.Report = &r
	}
	if !s.Day.Day.IsZero() {
		resp.Day = &dayResponse{
			Date:    s.Day.Day.String(),
			Sunrise: s.Day.Sunrise,
			Sunset:  s.Day.Sunset,
		}
	}
	return resp
}

func makeServeState(opts Options) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := configured(w, opts.Status)
		if !ok {
			return
		}
		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(newStateResponse(s)); err != nil {
			log.Printf("Failed to encode JSON result: %+v", err)
		}
	})
}

// intParam reads a positive integer form value bounded by max.
func intParam(r *http.Request, key string, def, max int) (int, error) {
	raw := r.FormValue(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("%s must be a whole number between 1 and %d", key, max)
	}
	return n, nil
}

func makeServeSunEvents(opts Options) http.Handler {
	timeCache := cache.NewTimed(cacheTTL)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := configured(w, opts.Status)
		if !ok {
			return
		}
		days, err := intParam(r, "days", defaultDays, maxDays)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "%v", err)
			return
		}
		place := s.Location.Place()
		asJSON := r.FormValue("o") == "json"

		// The listing starts today at place, so a new location or a new
		// day is not served stale events.
		now := opts.now()
		loc := place.Location
		if loc == nil {
			loc = time.UTC
		}
		today := timetricks.DateIn(now, loc)
		key := fmt.Sprintf("%s %s %s %s", r.Method, r.URL, place, today)
		body, _ := timeCache.Fetch(key, func() ([]byte, error) {
			log.Println("No cache data")
			events := opts.Sky.SunEvents(now, time.Duration(days)*day, place)
			return renderSunEvents(events, asJSON)
		})

		if asJSON {
			w.Header().Add("Content-Type", "application/json")
		} else {
			w.Header().Add("Content-Type", "text/plain")
		}
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})
}

func renderSunEvents(events sunset.SunEvents, asJSON bool) ([]byte, error) {
	var b bytes.Buffer
	if asJSON {
		if events == nil {
			events = sunset.SunEvents{}
		}
		err := json.NewEncoder(&b).Encode(events)
		return b.Bytes(), err
	}
	for i := range events {
		fmt.Fprintf(&b, "%s", events[i].String())
		if i+1 < len(events) {
			fmt.Fprintf(&b, "\n")
		}
	}
	return b.Bytes(), nil
}

func makeServeDaylight(opts Options) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := configured(w, opts.Status)
		if !ok {
			return
		}
		var b bytes.Buffer
		if _, err := daylightImage(opts, s, &b); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintf(w, "Failed to draw chart: %+v", err)
			log.Printf("Failed to draw chart: %+v", err)
			return
		}
		w.Header().Add("Content-Type", "image/svg+xml")
		w.WriteHeader(http.StatusOK)
		w.Write(b.Bytes())
	})
}

func daylightImage(opts Options, s controller.Status, b *bytes.Buffer) (int, error) {
	now := opts.now()
	place := s.Location.Place()
	events := opts.Sky.SunEvents(now.Add(-day), 3*day, place)
	img := visualize.NewDaylight(place, events)
	img.SetDate(now)
	return img.Encode(b)
}

func makeServeTransitions(opts Options) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, err := intParam(r, "limit", defaultTransitions, maxTransitions)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "%v", err)
			return
		}
		rows, err := opts.History.Recent(r.Context(), limit)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintf(w, "Failed to get data: %+v", err)
			log.Printf("Failed to get data: %+v", err)
			return
		}
		if rows == nil {
			rows = []data.Transition{}
		}
		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(rows); err != nil {
			log.Printf("Failed to encode JSON result: %+v", err)
		}
	})
}
