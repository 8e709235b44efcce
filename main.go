package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/controller"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/data"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/events"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/handlers"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/polyglot"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/store"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/sunset"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/tracker"
)

type Config struct {
	Port   string `default:"8080"`
	Prefix string `default:"/"`

	Broker     string `default:"tcp://localhost:1883"`
	ClientID   string `envconfig:"CLIENT_ID"`
	Username   string
	Password   string
	TLS        bool
	NodeServer string `envconfig:"NODE_SERVER" default:"sunpos"`
	Address    string `default:"sunctrl"`

	ShortPoll time.Duration `envconfig:"SHORT_POLL" default:"60s"`
	LongPoll  time.Duration `envconfig:"LONG_POLL" default:"600s"`

	DataPath  string `envconfig:"DATA_PATH" default:"sunpos.db"`
	Algorithm string `default:"keep94"`
	Timezone  string

	PostgresDSN  string   `envconfig:"POSTGRES_DSN"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"sun-transitions"`
}

// ticker returns a channel ticking every d, or nil when d is zero.
func ticker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func main() {
	var env Config
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal(err.Error())
	}

	alg, err := sunset.ParseAlgorithm(env.Algorithm)
	if err != nil {
		log.Fatal(err.Error())
	}
	tz := time.Local
	if env.Timezone != "" {
		if tz, err = time.LoadLocation(env.Timezone); err != nil {
			log.Fatalf("Bad timezone %q: %v", env.Timezone, err)
		}
	}
	sky := sunset.Sky{Algorithm: alg}

	cfg := controller.Config{
		Address:  env.Address,
		Timezone: tz,
	}
	if env.DataPath != "" {
		st, err := store.Open(env.DataPath)
		if err != nil {
			log.Fatalf("Failed to open %s: %v", env.DataPath, err)
		}
		defer st.Close()
		cfg.Store = st
	}
	var history *data.History
	if env.PostgresDSN != "" {
		if history, err = data.Open(env.PostgresDSN); err != nil {
			log.Fatalf("Failed to open transition history: %v", err)
		}
		defer history.Close()
		cfg.Sinks = append(cfg.Sinks, history)
	}
	if len(env.KafkaBrokers) > 0 {
		stream := events.NewStream(env.KafkaBrokers, env.KafkaTopic, env.Address)
		defer stream.Close()
		cfg.Sinks = append(cfg.Sinks, stream)
	}

	client, err := polyglot.New(polyglot.Config{
		Broker:     env.Broker,
		ClientID:   env.ClientID,
		Username:   env.Username,
		Password:   env.Password,
		UseTLS:     env.TLS,
		NodeServer: env.NodeServer,
	}, log.Default())
	if err != nil {
		log.Fatal(err.Error())
	}
	if err := client.Connect(); err != nil {
		log.Fatal(err.Error())
	}
	defer client.Disconnect()

	ctrl := controller.New(client, tracker.New(sky), cfg)

	r := mux.NewRouter().StrictSlash(true)
	s := r.PathPrefix(env.Prefix).Subrouter()
	opts := handlers.Options{Status: ctrl, Sky: sky}
	if history != nil {
		opts.History = history
	}
	handlers.Register(s, opts)

	srv := &http.Server{
		Handler:      r,
		Addr:         "0.0.0.0:" + env.Port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	go func() {
		log.Printf("Listening and serving on %s/%s", srv.Addr, env.Prefix[1:])
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shortPoll, stopShort := ticker(env.ShortPoll)
	defer stopShort()
	longPoll, stopLong := ticker(env.LongPoll)
	defer stopLong()

	ctrl.Start(ctx, nil)
	if err := ctrl.Run(ctx, client.Inbound(), shortPoll, longPoll); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Controller stopped: %v", err)
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		log.Printf("Failed to shut down HTTP server: %v", err)
	}
}
