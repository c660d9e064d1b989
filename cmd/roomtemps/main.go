// Command roomtemps collects room temperature readings from a message broker
// and shows each room's environment series against its dynamic threshold.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/luki/roomtemps/internal/coalesce"
	"github.com/luki/roomtemps/internal/config"
	"github.com/luki/roomtemps/internal/httpapi"
	"github.com/luki/roomtemps/internal/ingest"
	"github.com/luki/roomtemps/internal/logging"
	"github.com/luki/roomtemps/internal/monitor"
	"github.com/luki/roomtemps/internal/source"
	"github.com/luki/roomtemps/internal/source/amqp"
	"github.com/luki/roomtemps/internal/source/mqtt"
	"github.com/luki/roomtemps/internal/store"
)

// uiLogFile receives log output while the terminal UI owns the screen.
const uiLogFile = "roomtemps.log"

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	headless := flag.Bool("headless", false, "log room summaries instead of showing the terminal UI")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	if *headless {
		cfg.UI.Enabled = false
	}
	if cfg.UI.Enabled && len(cfg.Logging.Output) == 0 {
		cfg.Logging.Output = []string{uiLogFile}
	}

	zl, err := logging.New(cfg.Env, cfg.Logging)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     store.New(cfg.Store.Capacity),
		selection: &ingest.Selection{},
	}

	if cfg.UI.Enabled {
		err = a.runUI()
	} else {
		err = a.runHeadless()
	}
	if err != nil {
		logger.Errorw("roomtemps: exiting", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("roomtemps: shutdown OK")
}

type app struct {
	cfg       config.Config
	logger    *zap.SugaredLogger
	store     *store.Store
	selection *ingest.Selection

	coalescer *coalesce.Coalescer
	source    source.Source
	api       *httpapi.Server
}

// start wires the coalescer to exec and starts ingestion and the HTTP API.
func (a *app) start(exec coalesce.Executor, h coalesce.Handlers) error {
	a.coalescer = coalesce.New(exec, a.cfg.Coalesce.Intervals(), h, a.logger)
	pipeline := ingest.NewPipeline(a.store, a.coalescer, a.selection, a.logger)

	switch a.cfg.Source.Transport {
	case config.TransportAMQP:
		a.source = amqp.NewSubscriber(a.cfg.AMQP, pipeline, a.logger)
	default:
		a.source = mqtt.New(a.cfg.MQTT, pipeline, a.logger)
	}
	if err := a.source.Start(); err != nil {
		return fmt.Errorf("start %s source: %w", a.cfg.Source.Transport, err)
	}

	if a.cfg.HTTP.Listen != "" {
		a.api = httpapi.NewServer(a.cfg.HTTP.Listen, a.store, a.cfg.Alert.DefaultThreshold, a.logger)
		go func() {
			if err := a.api.Start(); err != nil {
				a.logger.Errorw("http server error", "error", err)
			}
		}()
	}
	return nil
}

// stop shuts everything down in reverse order of start.
func (a *app) stop() {
	if a.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.api.Stop(ctx); err != nil {
			a.logger.Warnw("http server shutdown", "error", err)
		}
	}
	if a.source != nil {
		if err := a.source.Stop(); err != nil {
			a.logger.Warnw("source shutdown", "error", err)
		}
	}
	if a.coalescer != nil {
		a.coalescer.Close()
	}
}

func (a *app) runUI() error {
	m := monitor.New(a.store, a.selection, monitor.Options{
		DefaultThreshold: a.cfg.Alert.DefaultThreshold,
		Source:           a.cfg.Source.Transport,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	exec := monitor.NewExecutor(p)
	defer exec.Close()

	if err := a.start(exec, m.Handlers()); err != nil {
		a.stop()
		return err
	}
	defer a.stop()

	_, err := p.Run()
	return err
}

func (a *app) runHeadless() error {
	exec := coalesce.NewSerial()
	defer exec.Close()

	r := &reporter{store: a.store, selection: a.selection, fallback: a.cfg.Alert.DefaultThreshold, logger: a.logger}
	if err := a.start(exec, r.Handlers()); err != nil {
		a.stop()
		return err
	}

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	<-exit

	a.logger.Info("roomtemps: shutting down")
	a.stop()
	return nil
}
