//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/ianastafeva/quake-parametric-risk/internal/adapter/kafka"
	"github.com/ianastafeva/quake-parametric-risk/internal/adapter/usgs"
	"github.com/ianastafeva/quake-parametric-risk/internal/catalogue"
	"github.com/ianastafeva/quake-parametric-risk/internal/config"
	"github.com/ianastafeva/quake-parametric-risk/internal/domain"
	"github.com/ianastafeva/quake-parametric-risk/internal/observability"
	"github.com/ianastafeva/quake-parametric-risk/internal/pipeline"
)

const (
	testSourceTopic = "test-quote-requests"
	testSinkTopic   = "test-quote-results"
)

// catalogueCSV covers three Tonga-region events: two qualifying years and a
// small aftershock the same year as the mainshock.
const catalogueCSV = `time,latitude,longitude,depth,mag,id,place
2001-03-01T10:00:00.000Z,-20.1,-175.0,30.0,7.0,us2001aaaa,"Tonga region"
2001-03-02T04:00:00.000Z,-20.1,-175.0,28.0,5.2,us2001bbbb,"Tonga region"
2003-07-12T04:30:00.000Z,-20.0,-175.1,45.0,5.4,us2003cccc,"Tonga"
`

// priceResult holds a deserialized message read from the sink topic.
type priceResult struct {
	Result  domain.QuoteResult
	Key     string
	Headers map[string]string
}

// readResult reads a single message from the sink consumer and deserializes it.
func readResult(ctx context.Context, t *testing.T, consumer *kafkago.Reader) priceResult {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var result domain.QuoteResult
	require.NoError(t, json.Unmarshal(msg.Value, &result), "unmarshal sink message")

	return priceResult{
		Result:  result,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (Extractor) and
// kafka.Writer (Loader) correctly round-trip a message through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-reader-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	payload, err := json.Marshal(tongaRequest("quote-roundtrip"))
	require.NoError(t, err)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("quote-roundtrip"),
		Value: payload,
	}))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawRequest
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("quote-roundtrip"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")

	// Commit the offset.
	require.NoError(t, raw.Commit(ctx))

	// Price the request against a stub catalogue service.
	transformer := newStubbedTransformer(t)
	out, err := transformer.Transform(ctx, raw)
	require.NoError(t, err)

	// Load via kafka.Writer.
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.LoadBatch(ctx, []domain.OutputEvent{out}))

	// Read from the sink topic and verify headers + value.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	pr := readResult(ctx, t, consumer)
	assert.Equal(t, "quote-roundtrip", pr.Key)
	assert.Equal(t, "quote-roundtrip", pr.Headers["quote_id"])
	_, err = time.Parse(time.RFC3339, pr.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	assert.Equal(t, "quote-roundtrip", pr.Result.QuoteID)
	assert.Equal(t, 3, pr.Result.EventCount)
	assert.False(t, pr.Result.NoData)
	// 2001: mag 7.0 mainshock pays 1000 (the 5.2 aftershock pays less and
	// loses the yearly max); 2003: mag 5.4 pays 100. 70 years in [1952, 2021].
	assert.InDelta(t, 1100.0/70.0, pr.Result.BurningCost, 1e-9)
}

// TestPipelineEndToEnd wires the full pipeline (Reader, Transformer, Writer)
// with real Kafka and verifies that a batch of quote requests is priced.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	const requestCount = 10

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := make([]kafkago.Message, 0, requestCount)
	for i := 0; i < requestCount; i++ {
		id := fmt.Sprintf("quote-%d", i)
		payload, err := json.Marshal(tongaRequest(id))
		require.NoError(t, err)
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(id),
			Value: payload,
		})
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	// Wire up the pipeline.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	transformer := newStubbedTransformer(t)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 50)

	// Run the pipeline in a goroutine.
	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Read all priced quotes from the sink topic.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make([]priceResult, 0, requestCount)
	for len(received) < requestCount {
		pr := readResult(ctx, t, consumer)
		received = append(received, pr)
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	require.Len(t, received, requestCount)
	seen := map[string]bool{}
	for _, pr := range received {
		seen[pr.Result.QuoteID] = true

		assert.NotEmpty(t, pr.Headers["quote_id"], "missing quote_id header")
		assert.Contains(t, pr.Headers, "processed_at", "missing processed_at header")
		_, err := time.Parse(time.RFC3339, pr.Headers["processed_at"])
		assert.NoError(t, err, "invalid processed_at format")

		assert.Equal(t, 3, pr.Result.EventCount)
		assert.InDelta(t, 1100.0/70.0, pr.Result.BurningCost, 1e-9)
		assert.Equal(t, 1000.0, pr.Result.YearlyPayouts[2001], "yearly max should keep the mainshock payout")
	}
	assert.Len(t, seen, requestCount, "every quote should be priced exactly once")
}

// TestPipelineTransformError verifies that an invalid message (poison pill) is
// skipped and the pipeline continues processing valid messages.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-poison-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	validPayload, err := json.Marshal(tongaRequest("quote-good"))
	require.NoError(t, err)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("quote-good"), Value: validPayload},
	))

	// Wire up the pipeline.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	transformer := newStubbedTransformer(t)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Only the valid message should appear on the sink topic.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	pr := readResult(ctx, t, consumer)
	assert.Equal(t, "quote-good", pr.Result.QuoteID)

	// Verify no second message arrives (the poison pill was skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}

// --- helpers ---

// startKafka launches a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID(fmt.Sprintf("test-cluster-%d", time.Now().UnixNano())),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic on the broker's controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// newStubbedTransformer builds a QuoteTransformer backed by an in-process
// USGS stub serving a fixed Tonga catalogue.
func newStubbedTransformer(t *testing.T) *pipeline.QuoteTransformer {
	t.Helper()

	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, catalogueCSV)
	}))
	t.Cleanup(stub.Close)

	metrics := observability.NewMetricsForTesting()
	client := usgs.NewClient(stub.URL, 10*time.Second, discardLogger(), metrics)
	provider := catalogue.NewProvider(usgs.NewCachedFetcher(client, 10, metrics), discardLogger())
	return pipeline.NewTransformer(provider, discardLogger(), metrics)
}

func tongaRequest(id string) domain.QuoteRequest {
	return domain.QuoteRequest{
		QuoteID:  id,
		Location: domain.GeoPoint{Lat: -20, Lon: -175},
		Schedule: domain.Schedule{
			{RadiusKm: 50, MinMagnitude: 6.5, Payout: 1000},
			{RadiusKm: 100, MinMagnitude: 5.0, Payout: 100},
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
