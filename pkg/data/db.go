package data

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/location"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/tracker"
)

// Transition is one recorded sunrise or sunset.
type Transition struct {
	gorm.Model
	Kind      string    `gorm:"index"`
	At        time.Time `gorm:"index"`
	Latitude  float64
	Longitude float64
	Azimuth   float64
	Elevation float64
}

// NewTransition converts a report to a row. Reports without a transition
// return false.
func NewTransition(cfg location.Config, r tracker.Report) (Transition, bool) {
	if r.Transition == tracker.None {
		return Transition{}, false
	}
	return Transition{
		Kind:      r.Transition.String(),
		At:        r.Time,
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		Azimuth:   r.Azimuth,
		Elevation: r.Elevation,
	}, true
}

// History stores transitions in postgres.
type History struct {
	db *gorm.DB
}

// Open connects to postgres with dsn and migrates the schema.
func Open(dsn string) (*History, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&Transition{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &History{db: db}, nil
}

func (h *History) Record(ctx context.Context, cfg location.Config, r tracker.Report) error {
	row, ok := NewTransition(cfg, r)
	if !ok {
		return nil
	}
	if tx := h.db.WithContext(ctx).Create(&row); tx.Error != nil {
		return fmt.Errorf("failed to save %s: %w", row.Kind, tx.Error)
	}
	return nil
}

// Recent returns the latest transitions, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Transition, error) {
	var rows []Transition
	tx := h.db.WithContext(ctx).Order("at desc").Limit(limit).Find(&rows)
	return rows, tx.Error
}

func (h *History) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
