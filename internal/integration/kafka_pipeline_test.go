//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/quake-risk/internal/adapter/kafka"
	"github.com/couchcryptid/quake-risk/internal/config"
	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/observability"
	"github.com/couchcryptid/quake-risk/internal/pipeline"
)

const testTopic = "test-quake-risk"

type publishedMessage struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("quake-risk-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func readMessage(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return publishedMessage{Key: string(msg.Key), Value: msg.Value, Headers: headers}
}

type staticEvents []domain.SeismicEvent

func (s staticEvents) Events(context.Context, domain.DateWindow) ([]domain.SeismicEvent, error) {
	return s, nil
}

type staticGeocoder map[string]domain.Coordinates

func (g staticGeocoder) Geocode(_ context.Context, city, _ string) (domain.Coordinates, error) {
	c, ok := g[city]
	if !ok {
		return domain.Coordinates{}, domain.ErrNoMatch
	}
	return c, nil
}

// TestPipelinePublishesToKafka runs rank and assess with a real broker and reads the
// published messages back.
func TestPipelinePublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	require.NoError(t, kafka.EnsureTopic(ctx, []string{broker}, testTopic, 1))

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	california := domain.Region{Name: "California", Code: "CA"}
	events := staticEvents{
		{Latitude: 39.4998, Longitude: -122.9502, Magnitude: 2.54, Place: domain.Place{Region: california}},
		{Latitude: 33.4953, Longitude: -116.4495, Magnitude: 2.57, Place: domain.Place{Region: california}},
	}
	geo := staticGeocoder{
		"Los Angeles": {Latitude: 34.0522, Longitude: -118.2437},
		"New York":    {Latitude: 40.7128, Longitude: -74.0060},
	}
	p := pipeline.New(events, geo, domain.DefaultRiskParams(), discardLogger(),
		observability.NewMetricsForTesting(), pipeline.WithPublisher(writer))

	window := domain.DateWindow{Start: "2025-03-10", End: "2025-03-17"}
	rankRun, err := p.Rank(ctx, window)
	require.NoError(t, err)

	clients := "Building Name,Location,Full Address\n" +
		"Wells Fargo Center,\"Los Angeles, CA\",\"355 S Grand Ave, Los Angeles, CA 90071\"\n" +
		"One World Trade Center,\"New York, NY\",\"285 Fulton St, New York, NY 10007\"\n"
	assessRun, err := p.AssessFile(ctx, window, strings.NewReader(clients))
	require.NoError(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	// Rankings first, then one message per target.
	first := readMessage(ctx, t, consumer)
	assert.Equal(t, kafka.KindRankings, first.Headers[kafka.HeaderKind])
	assert.Equal(t, rankRun.RunID, first.Key)
	var ranked pipeline.RankingRun
	require.NoError(t, json.Unmarshal(first.Value, &ranked))
	require.Len(t, ranked.Rankings, 1)
	assert.Equal(t, 2, ranked.Rankings[0].Count)

	byKey := map[string]kafka.AssessmentMessage{}
	for range 2 {
		m := readMessage(ctx, t, consumer)
		assert.Equal(t, kafka.KindAssessment, m.Headers[kafka.HeaderKind])
		assert.Equal(t, assessRun.RunID, m.Headers[kafka.HeaderRunID])
		assert.Equal(t, window.String(), m.Headers[kafka.HeaderWindow])
		_, err := time.Parse(time.RFC3339, m.Headers[kafka.HeaderPublishedAt])
		assert.NoError(t, err, "published_at should be valid RFC3339")

		var am kafka.AssessmentMessage
		require.NoError(t, json.Unmarshal(m.Value, &am))
		byKey[m.Key] = am
	}

	la := byKey["Wells Fargo Center"]
	assert.Equal(t, 1, la.Risk.NearbyEventCount)
	assert.False(t, la.Risk.ShouldInsure)

	ny := byKey["One World Trade Center"]
	assert.Equal(t, domain.StatusNoNearbyEvents, ny.Risk.Status)
	assert.True(t, ny.Risk.ShouldInsure)
}

// TestEnsureTopicIsIdempotent creates the same topic twice.
func TestEnsureTopicIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	require.NoError(t, kafka.EnsureTopic(ctx, []string{broker}, testTopic, 1))
	require.NoError(t, kafka.EnsureTopic(ctx, []string{broker}, testTopic, 1))
}
