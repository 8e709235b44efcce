package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/controller"
)

//go:embed static
var content embed.FS

type TemplateInput struct {
	Configured bool
	Place      string
	Updated    string
	Values     []Value
	SunEvents  []string
	Daylight   template.HTML
}

// Value is one labelled reading on the index page.
type Value struct {
	Name, Value string
}

// makeIndexHandler serves the status page fully rendered on the server, or
// a plain text summary with o=text.
func makeIndexHandler(opts Options) http.Handler {
	indexTemplate := template.Must(template.ParseFS(content, "static/index.template.html"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tinput := newTemplateInput(opts, opts.Status.Status())

		if r.FormValue("o") == "text" {
			w.Header().Add("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			writeSummary(w, tinput)
			return
		}

		w.Header().Add("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if err := indexTemplate.Execute(w, tinput); err != nil {
			log.Printf("Failed to execute template: %v", err)
		}
	})
}

func newTemplateInput(opts Options, s controller.Status) TemplateInput {
	tinput := TemplateInput{Configured: s.Configured}
	if !s.Configured {
		return tinput
	}
	place := s.Location.Place()
	tinput.Place = place.String()

	if s.HasReport {
		rep := s.Report
		updated := rep.Time
		if place.Location != nil {
			updated = updated.In(place.Location)
		}
		tinput.Updated = updated.Format(time.RFC1123)
		tinput.Values = []Value{
			{"Azimuth", fmt.Sprintf("%.2f°", rep.Azimuth)},
			{"Elevation", fmt.Sprintf("%.2f°", rep.Elevation)},
			{"Zenith", fmt.Sprintf("%.2f°", rep.Zenith)},
			{"Moon phase", fmt.Sprintf("%.2f", rep.MoonPhase)},
			{"Above horizon", fmt.Sprintf("%t", rep.AboveHorizon)},
		}
		if rep.Err != nil {
			tinput.Values = append(tinput.Values, Value{"Error", rep.Err.Error()})
		}
	}

	events := opts.Sky.SunEvents(opts.now(), 2*day, place)
	for i := range events {
		tinput.SunEvents = append(tinput.SunEvents, events[i].String())
	}

	var b bytes.Buffer
	if _, err := daylightImage(opts, s, &b); err != nil {
		log.Printf("Failed to draw chart: %v", err)
	} else {
		tinput.Daylight = template.HTML(b.String())
	}
	return tinput
}

func writeSummary(w http.ResponseWriter, tinput TemplateInput) {
	if !tinput.Configured {
		fmt.Fprintf(w, "Location is not configured\n")
		return
	}
	fmt.Fprintf(w, "Location %s\n", tinput.Place)
	if tinput.Updated != "" {
		fmt.Fprintf(w, "Updated %s\n", tinput.Updated)
	}
	for _, v := range tinput.Values {
		fmt.Fprintf(w, "%s: %s\n", v.Name, v.Value)
	}
	for _, e := range tinput.SunEvents {
		fmt.Fprintf(w, "%s\n", e)
	}
}

