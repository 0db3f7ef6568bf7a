// Command flowgen feeds the canned sample event sequence into a running
// flowpulse instance, over NATS by default or HTTP with -http.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	fpnats "github.com/avely-dev/flowpulse/internal/adapter/nats"
	"github.com/avely-dev/flowpulse/internal/domain/event"
	"github.com/avely-dev/flowpulse/internal/port/messagequeue"
)

func main() {
	natsURL := flag.String("nats", "nats://localhost:4222", "NATS server URL")
	httpURL := flag.String("http", "", "ingest over HTTP instead of NATS (e.g. http://localhost:8080)")
	interval := flag.Duration("interval", 200*time.Millisecond, "delay between events")
	flag.Parse()

	if err := run(*natsURL, *httpURL, *interval); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(natsURL, httpURL string, interval time.Duration) error {
	ctx := context.Background()
	feed := event.SampleFeed()

	var publish func(raw event.Raw) error

	if httpURL != "" {
		client := &http.Client{Timeout: 10 * time.Second}
		publish = func(raw event.Raw) error {
			return postEvent(ctx, client, httpURL, raw)
		}
	} else {
		queue, err := fpnats.Connect(ctx, natsURL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
		publish = func(raw event.Raw) error {
			data, err := json.Marshal(raw)
			if err != nil {
				return err
			}
			return queue.Publish(ctx, messagequeue.SubjectEventsRaw, data)
		}
	}

	for i, raw := range feed {
		if err := publish(raw); err != nil {
			return fmt.Errorf("publish event %d (%s): %w", i, raw.EventType, err)
		}
		slog.Info("event sent", "index", i, "event_type", raw.EventType)
		time.Sleep(interval)
	}

	slog.Info("sample feed complete", "events", len(feed))
	return nil
}

func postEvent(ctx context.Context, client *http.Client, baseURL string, raw event.Raw) error {
	body, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
