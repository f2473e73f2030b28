// Command genquotes generates sample quote requests for exercising the
// pricing pipeline. It either writes them to a JSON file or publishes them
// straight onto the source topic.
//
// Usage:
//
//	go run ./cmd/genquotes -count 5 -out quotes.json
//	go run ./cmd/genquotes -count 5 -brokers localhost:9092 -topic quote-requests
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ianastafeva/quake-parametric-risk/internal/domain"
)

// sites are seismically active locations with known catalogue coverage.
var sites = []struct {
	name string
	geo  domain.GeoPoint
}{
	{"tonga", domain.GeoPoint{Lat: -20, Lon: -175}},
	{"crete", domain.GeoPoint{Lat: 35.025, Lon: 25.763}},
	{"tokyo", domain.GeoPoint{Lat: 35.68, Lon: 139.69}},
	{"valparaiso", domain.GeoPoint{Lat: -33.05, Lon: -71.62}},
	{"anchorage", domain.GeoPoint{Lat: 61.22, Lon: -149.9}},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	count := flag.Int("count", len(sites), "number of quote requests to generate")
	out := flag.String("out", "", "output path for a JSON fixture")
	brokers := flag.String("brokers", "", "comma-separated Kafka brokers; publishes instead of writing a file")
	topic := flag.String("topic", "quote-requests", "source topic to publish to")
	flag.Parse()

	if *out == "" && *brokers == "" {
		flag.Usage()
		return errors.New("one of -out or -brokers is required")
	}

	requests := generate(*count)

	if *out != "" {
		if err := writeJSON(*out, requests); err != nil {
			return fmt.Errorf("writing fixture: %w", err)
		}
		log.Printf("wrote %d quote requests: %s", len(requests), *out)
		return nil
	}

	if err := publish(*brokers, *topic, requests); err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	log.Printf("published %d quote requests to %s", len(requests), *topic)
	return nil
}

func generate(count int) []domain.QuoteRequest {
	requests := make([]domain.QuoteRequest, 0, count)
	for i := 0; i < count; i++ {
		site := sites[i%len(sites)]
		requests = append(requests, domain.QuoteRequest{
			QuoteID:  fmt.Sprintf("quote-%s-%d", site.name, i+1),
			Location: site.geo,
			Schedule: domain.Schedule{
				{RadiusKm: 10, MinMagnitude: 4.5, Payout: 100},
				{RadiusKm: 50, MinMagnitude: 5.5, Payout: 75},
				{RadiusKm: 200, MinMagnitude: 6.5, Payout: 50},
			},
		})
	}
	return requests
}

func writeJSON(path string, requests []domain.QuoteRequest) error {
	data, err := json.MarshalIndent(requests, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func publish(brokers, topic string, requests []domain.QuoteRequest) error {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	defer writer.Close()

	msgs := make([]kafkago.Message, 0, len(requests))
	for _, req := range requests {
		payload, err := json.Marshal(req)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(req.QuoteID),
			Value: payload,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return writer.WriteMessages(ctx, msgs...)
}
