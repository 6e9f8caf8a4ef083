// Command waterfuse-notify watches the waterfuse status file and
// forwards each started/stopped transition to an MQTT broker for
// human-facing alerting.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/sweeney/waterfuse/internal/mqtt"
	"github.com/sweeney/waterfuse/internal/notify"
	"github.com/sweeney/waterfuse/internal/status"
)

func main() {
	statePath := flag.String("state", status.DefaultPath, "Status record file path")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.Parse()

	if err := run(*statePath, *broker); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(statePath, broker string) error {
	pub, err := mqtt.NewRealPublisher(broker)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("watching %s, forwarding to %s", statePath, broker)

	n := notify.New(statePath, pub)
	if err := n.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Printf("shutting down")
	return nil
}
