// Package controller is the node the home automation controller sees. It
// turns controller operations into tracker refreshes and reports the
// results back as driver values, commands and notices.
package controller

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/location"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/metrics"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/polyglot"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/store"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/tracker"
)

// Host is the outbound side of the controller connection.
// *polyglot.Client implements it.
type Host interface {
	AddNode(n polyglot.Node) error
	SetDriver(address, driver, value string, uom int) error
	ReportCommand(address, cmd string) error
	AddNotice(key, text string) error
	RemoveNotice(key string) error
}

// Sink receives every report that carries a transition.
type Sink interface {
	Record(ctx context.Context, cfg location.Config, r tracker.Report) error
}

// Store persists parameters and the last report. *store.Store implements it.
type Store interface {
	SaveParams(params map[string]string) error
	LoadParams() (map[string]string, error)
	SaveReport(r tracker.Report) error
	LoadReport() (tracker.Report, error)
}

type Config struct {
	// Address of the node, DefaultAddress if empty.
	Address string
	// Timezone of the observer, time.Local if nil.
	Timezone *time.Location
	// Store is optional.
	Store Store
	Sinks []Sink
	// Now is the clock, time.Now if nil.
	Now func() time.Time
}

// Status is a point in time view of the controller, safe to read from any
// goroutine.
type Status struct {
	Location   location.Config
	Configured bool
	Report     tracker.Report
	HasReport  bool
	// Day holds the cached sunrise and sunset as of the last refresh.
	Day tracker.State
}

// Controller handles one operation at a time. Run serializes operations
// from the host and the local poll timers; the Handle and operation
// methods must not be called concurrently.
type Controller struct {
	host     Host
	tracker  *tracker.Tracker
	notifier tracker.Notifier
	store    Store
	sinks    []Sink
	address  string
	tz       *time.Location
	now      func() time.Time

	// notices maps shown notice keys to their text.
	notices map[string]string
	// received is set once the host has sent custom parameters; saved
	// parameters are only used before that.
	received bool
	last     atomic.Pointer[tracker.Report]
	day      atomic.Pointer[tracker.State]
}

func New(host Host, tr *tracker.Tracker, cfg Config) *Controller {
	c := &Controller{
		host:    host,
		tracker: tr,
		store:   cfg.Store,
		sinks:   cfg.Sinks,
		address: cfg.Address,
		tz:      cfg.Timezone,
		now:     cfg.Now,
		notices: make(map[string]string),
	}
	if c.address == "" {
		c.address = DefaultAddress
	}
	if c.tz == nil {
		c.tz = time.Local
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.notifier = tracker.Notifier{Reporter: c}
	return c
}

// Run handles operations until ctx is done. shortPoll and longPoll may be
// nil when the host drives polling.
func (c *Controller) Run(ctx context.Context, in <-chan polyglot.Inbound, shortPoll, longPoll <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return ctx.Err()
		case op, ok := <-in:
			if !ok {
				c.Stop()
				return nil
			}
			c.Handle(ctx, op)
		case <-shortPoll:
			c.Poll(ctx, polyglot.ShortPoll)
		case <-longPoll:
			c.Poll(ctx, polyglot.LongPoll)
		}
	}
}

// Handle dispatches one host operation.
func (c *Controller) Handle(ctx context.Context, op polyglot.Inbound) {
	switch op.Kind {
	case polyglot.Start:
		c.Start(ctx, op.Params)
	case polyglot.Stop:
		c.Stop()
	case polyglot.ShortPoll, polyglot.LongPoll:
		c.Poll(ctx, op.Kind)
	case polyglot.CustomParams:
		c.SetConfigParameters(ctx, op.Params)
	case polyglot.Query:
		c.Query()
	default:
		log.Printf("Unhandled operation %q", op.Kind)
	}
}

// Start announces the node and applies params when the host sent them
// with the start. Otherwise saved parameters are applied until the host
// sends its own, and a repeated Start leaves the current location and
// notices alone.
func (c *Controller) Start(ctx context.Context, params map[string]string) {
	log.Printf("Started %s", NodeName)
	if err := c.host.AddNode(node(c.address)); err != nil {
		log.Printf("Failed to add node %s: %v", c.address, err)
	}
	c.setDriver(DriverStatus, "1", uomBoolean)
	if params != nil {
		c.SetConfigParameters(ctx, params)
		return
	}
	_, configured := c.tracker.Location()
	if configured {
		if r := c.last.Load(); r != nil {
			c.reportValues(*r)
		}
	}
	if configured || c.received {
		return
	}

	params = map[string]string{}
	if c.store != nil {
		if saved, err := c.store.LoadParams(); err == nil {
			params = saved
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Failed to load saved parameters: %v", err)
		}
		if c.last.Load() == nil {
			if r, err := c.store.LoadReport(); err == nil {
				c.last.Store(&r)
			}
		}
	}
	c.applyParams(ctx, params)
}

func (c *Controller) Stop() {
	log.Printf("%s is stopping", NodeName)
	c.setDriver(DriverStatus, "0", uomBoolean)
}

// Poll refreshes on short polls and sends a heartbeat on long polls.
func (c *Controller) Poll(ctx context.Context, kind polyglot.Kind) {
	switch kind {
	case polyglot.ShortPoll:
		c.refresh(ctx)
	case polyglot.LongPoll:
		c.setDriver(DriverStatus, "1", uomBoolean)
	}
}

// SetConfigParameters validates new custom parameters. Problems are shown
// as one notice per parameter and leave the tracker dormant. A valid
// location is applied and reported right away.
func (c *Controller) SetConfigParameters(ctx context.Context, params map[string]string) error {
	c.received = true
	return c.applyParams(ctx, params)
}

func (c *Controller) applyParams(ctx context.Context, params map[string]string) error {
	cfg, err := location.Parse(params, c.tz)
	if err != nil {
		log.Printf("Please specify latitude and longitude configuration parameters: %v", err)
		c.tracker.Reset()
		bad := map[string]string{}
		for _, pe := range location.ParamErrors(err) {
			bad[pe.Key] = pe.Notice()
		}
		c.showNotices(bad)
		return err
	}

	c.showNotices(nil)
	if !c.tracker.Configure(cfg) {
		return nil
	}
	log.Printf("Location set to %s", cfg.Place())
	if c.store != nil {
		if err := c.store.SaveParams(params); err != nil {
			log.Printf("Failed to save parameters: %v", err)
		}
	}
	c.refresh(ctx)
	return nil
}

// Query reports the last known values without recomputing them.
func (c *Controller) Query() {
	c.setDriver(DriverStatus, "1", uomBoolean)
	if r := c.last.Load(); r != nil {
		c.reportValues(*r)
	}
}

// Status returns the latest location and report.
func (c *Controller) Status() Status {
	var s Status
	s.Location, s.Configured = c.tracker.Location()
	if r := c.last.Load(); r != nil {
		s.Report, s.HasReport = *r, true
	}
	if d := c.day.Load(); d != nil {
		s.Day = *d
	}
	return s
}

// ReportSignal implements tracker.Reporter.
func (c *Controller) ReportSignal(s tracker.Signal) error {
	return c.host.ReportCommand(c.address, s.Command())
}

func (c *Controller) refresh(ctx context.Context) {
	r, ok := c.tracker.Refresh(c.now())
	if !ok {
		return
	}
	c.last.Store(&r)
	day := c.tracker.State()
	c.day.Store(&day)
	metrics.ObserveReport(r)
	c.reportValues(r)

	if r.Transition != tracker.None {
		log.Println(r.Transition)
		if _, err := c.notifier.Notify(r); err != nil {
			log.Printf("Failed to report %s: %v", r.Transition, err)
		}
		cfg, _ := c.tracker.Location()
		for _, s := range c.sinks {
			if err := s.Record(ctx, cfg, r); err != nil {
				log.Printf("Failed to record %s: %v", r.Transition, err)
			}
		}
	}

	if c.store != nil {
		if err := c.store.SaveReport(r); err != nil {
			log.Printf("Failed to save report: %v", err)
		}
	}
}

func (c *Controller) reportValues(r tracker.Report) {
	for _, d := range reportDrivers(r) {
		c.setDriver(d.Driver, d.Value, d.UOM)
	}
}

func (c *Controller) setDriver(driver, value string, uom int) {
	if err := c.host.SetDriver(c.address, driver, value, uom); err != nil {
		log.Printf("Failed to set %s: %v", driver, err)
	}
}

// showNotices makes the shown notices match want.
func (c *Controller) showNotices(want map[string]string) {
	var stale []string
	for key := range c.notices {
		if _, ok := want[key]; !ok {
			stale = append(stale, key)
		}
	}
	sort.Strings(stale)
	for _, key := range stale {
		if err := c.host.RemoveNotice(key); err != nil {
			log.Printf("Failed to remove notice %s: %v", key, err)
			continue
		}
		delete(c.notices, key)
	}

	keys := make([]string, 0, len(want))
	for key := range want {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if c.notices[key] == want[key] {
			continue
		}
		if err := c.host.AddNotice(key, want[key]); err != nil {
			log.Printf("Failed to add notice %s: %v", key, err)
			continue
		}
		c.notices[key] = want[key]
	}
}
