// Command roomsim publishes synthetic environment and reference readings to
// an MQTT broker, cycling each room's reference so thresholds move over time.
package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/luki/roomtemps/internal/source/mqtt"
)

func main() {
	broker := flag.String("broker", mqtt.DefaultConfig().Broker, "MQTT broker address")
	interval := flag.Duration("interval", 3*time.Second, "pause between cycles")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg := mqtt.DefaultConfig()
	cfg.Broker = *broker
	pub, err := mqtt.NewPublisher(cfg)
	if err != nil {
		sugar.Fatalw("connect failed", "error", err)
	}
	defer pub.Close()

	sim := newSimulator(defaultRooms(), rand.New(rand.NewSource(time.Now().UnixNano())))

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		for _, e := range sim.step() {
			now := time.Now()
			if err := pub.Publish(e.room, e.category.Code(), now, e.value); err != nil {
				sugar.Warnw("publish failed", "room", e.room, "error", err)
				continue
			}
			sugar.Infow("published", "cycle", sim.cycle, "room", e.room, "category", e.category.String(), "value", e.value)
		}

		select {
		case <-exit:
			sugar.Info("roomsim: shutting down")
			return
		case <-ticker.C:
		}
	}
}
