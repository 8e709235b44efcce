// Package events streams sunrise and sunset transitions to kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/location"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/tracker"
)

// Message is the JSON value written for each transition.
type Message struct {
	Address   string    `json:"address"`
	Event     string    `json:"event"`
	Signal    string    `json:"signal"`
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Azimuth   float64   `json:"azimuth"`
	Elevation float64   `json:"elevation"`
}

// NewMessage builds the message for r, if r carries a transition.
func NewMessage(address string, cfg location.Config, r tracker.Report) (Message, bool) {
	sig, ok := tracker.SignalFor(r.Transition)
	if !ok {
		return Message{}, false
	}
	return Message{
		Address:   address,
		Event:     r.Transition.String(),
		Signal:    string(sig),
		Time:      r.Time,
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		Azimuth:   r.Azimuth,
		Elevation: r.Elevation,
	}, true
}

// messageWriter is the part of kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Stream writes transition messages keyed by node address.
type Stream struct {
	address string
	w       messageWriter
}

func NewStream(brokers []string, topic, address string) *Stream {
	return &Stream{
		address: address,
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (s *Stream) Record(ctx context.Context, cfg location.Config, r tracker.Report) error {
	msg, ok := NewMessage(s.address, cfg, r)
	if !ok {
		return nil
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(s.address),
		Value: value,
	}); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (s *Stream) Close() error {
	return s.w.Close()
}
