package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apiforecasts "github.com/kerbrat/tripcast/api/forecasts"
	apiquotes "github.com/kerbrat/tripcast/api/quotes"
	apirecalc "github.com/kerbrat/tripcast/api/recalc"
	"github.com/kerbrat/tripcast/config"
	"github.com/kerbrat/tripcast/core/events"
	coremetrics "github.com/kerbrat/tripcast/core/metrics"
	"github.com/kerbrat/tripcast/core/recalc"
	"github.com/kerbrat/tripcast/core/schedule"
	"github.com/kerbrat/tripcast/core/store"
	"github.com/kerbrat/tripcast/infra/logger"
	"github.com/kerbrat/tripcast/infra/memstore"
	"github.com/kerbrat/tripcast/infra/metrics"
	"github.com/kerbrat/tripcast/infra/mqtt"
	"github.com/kerbrat/tripcast/infra/redistore"
	"github.com/kerbrat/tripcast/infra/sqlstore"
	"github.com/kerbrat/tripcast/internal/eventbus"
)

// Service wires the scheduling engine: stores, scheduler, quote and batch
// calculators, the recalc trigger and the sweep loop.
type Service struct {
	Scheduler *schedule.Scheduler
	Quotes    *schedule.QuoteCalculator
	Batch     *schedule.BatchCalculator
	Trigger   *recalc.Trigger

	sweeper     *recalc.Sweeper
	bus         *eventbus.Bus[events.Event]
	ingress     *mqtt.Ingress
	log         logger.Logger
	api         config.APIConfig
	forecasts   store.ForecastStore
	promEnabled bool
	promPort    string
	closers     []func() error
}

type stores struct {
	vehicles  store.VehicleStore
	orders    store.OrderStore
	trips     store.TripStore
	forecasts store.ForecastStore
	queue     store.RecalcQueue
	closers   []func() error
}

func buildStores(cfg *config.Config) (*stores, error) {
	st := &stores{}
	switch cfg.Store.Backend {
	case "memory":
		mem := memstore.New()
		st.vehicles, st.orders, st.trips = mem, mem, mem
		st.forecasts, st.queue = mem, mem
	case "sqlite", "postgres":
		driver := "sqlite"
		if cfg.Store.Backend == "postgres" {
			driver = "pgx"
		}
		db, err := sqlstore.Open(driver, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
		}
		st.vehicles, st.orders, st.trips = db, db, db
		st.forecasts, st.queue = db, db
		st.closers = append(st.closers, db.Close)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Store.Redis.Enabled {
		rd, err := redistore.New(cfg.Store.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		st.forecasts, st.queue = rd, rd
		st.closers = append(st.closers, rd.Close)
	}
	return st, nil
}

func buildSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	var sinks []coremetrics.MetricsSink
	if cfg.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return metrics.NewMultiSink(sinks...), nil
	}
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	st, err := buildStores(cfg)
	if err != nil {
		return nil, err
	}
	sink, err := buildSink(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	scheduler, err := schedule.NewScheduler(cfg.Schedule, st.vehicles, st.orders, st.trips, st.forecasts, sink, logg)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	quotes, err := schedule.NewQuoteCalculator(st.vehicles, st.forecasts, sink, logg)
	if err != nil {
		return nil, fmt.Errorf("quote calculator: %w", err)
	}
	batch, err := schedule.NewBatchCalculator(st.vehicles, st.orders, st.forecasts, logg)
	if err != nil {
		return nil, fmt.Errorf("batch calculator: %w", err)
	}
	trigger, err := recalc.NewTrigger(st.queue, st.trips, cfg.Recalc.Debounce(), logg)
	if err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}
	sweeper, err := recalc.NewSweeper(st.queue, scheduler, cfg.Recalc.SweepInterval(), sink, logg)
	if err != nil {
		return nil, fmt.Errorf("sweeper: %w", err)
	}

	bus := eventbus.New[events.Event]()
	svc := &Service{
		Scheduler:   scheduler,
		Quotes:      quotes,
		Batch:       batch,
		Trigger:     trigger,
		sweeper:     sweeper,
		bus:         bus,
		log:         logg,
		api:         cfg.API,
		forecasts:   st.forecasts,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
		closers:     st.closers,
	}
	if cfg.MQTT.Enabled {
		ingress, err := mqtt.NewIngress(cfg.MQTT, bus, logger.New("mqtt-ingress"))
		if err != nil {
			return nil, fmt.Errorf("mqtt ingress: %w", err)
		}
		svc.ingress = ingress
	}
	return svc, nil
}

// Bus returns the event bus order and trip writes are published on.
func (s *Service) Bus() *eventbus.Bus[events.Event] { return s.bus }

// Run starts the sweep loop and the event consumers and blocks until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.sweeper.Run(ctx)
	go s.consume(ctx)
	if s.ingress != nil {
		if err := s.ingress.Start(); err != nil {
			return fmt.Errorf("mqtt ingress: %w", err)
		}
	}
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, ":"+s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.api.Enabled {
		go func() {
			if err := s.serveAPI(ctx); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// serveAPI exposes the quote, forecast and recompute endpoints until the
// context is cancelled.
func (s *Service) serveAPI(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/api/quotes", apiquotes.NewHandler(s.Quotes, s.log))
	mux.Handle("/api/forecasts", apiforecasts.NewHandler(s.forecasts, s.log))
	mux.Handle("/api/recalc", apirecalc.NewHandler(s.Scheduler, s.log))

	srv := &http.Server{Addr: s.api.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shctx)
	}()
	s.log.Infof("api listening on %s", s.api.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// consume feeds bus events into the recalc trigger.
func (s *Service) consume(ctx context.Context) {
	ch := s.bus.Subscribe()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case events.OrderEvent:
				if err := s.Trigger.OrderWritten(ctx, e); err != nil {
					s.log.Errorf("order event: %v", err)
				}
			case events.TripEvent:
				if err := s.Trigger.TripWritten(ctx, e); err != nil {
					s.log.Errorf("trip event: %v", err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.ingress != nil {
		s.ingress.Close()
	}
	for _, c := range s.closers {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}
