package data

import (
	"testing"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/location"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/sunset"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/tracker"
)

func TestNewTransition(t *testing.T) {
	cfg := location.Config{Latitude: 40, Longitude: -74, Timezone: time.UTC}
	now := time.Date(2021, time.March, 1, 18, 0, 0, 0, time.UTC)

	if _, ok := NewTransition(cfg, tracker.Report{Time: now}); ok {
		t.Errorf("report without transition produced a row")
	}

	row, ok := NewTransition(cfg, tracker.Report{
		Time:       now,
		Angles:     sunset.Angles{Azimuth: 260.5, Elevation: -0.3},
		Transition: tracker.Sunset,
	})
	if !ok {
		t.Fatalf("no row for sunset")
	}
	if row.Kind != "Sunset" || !row.At.Equal(now) || row.Latitude != 40 || row.Longitude != -74 || row.Azimuth != 260.5 || row.Elevation != -0.3 {
		t.Errorf("bad row %+v", row)
	}
}
