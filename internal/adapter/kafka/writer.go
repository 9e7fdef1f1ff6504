package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-risk/internal/config"
	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/pipeline"
)

// Message kinds carried in the "kind" header.
const (
	KindRankings   = "rankings"
	KindAssessment = "assessment"
)

// Header keys.
const (
	HeaderKind        = "kind"
	HeaderRunID       = "run_id"
	HeaderWindow      = "window"
	HeaderPublishedAt = "published_at"
)

// AssessmentMessage is the value of one assessment message. Each assessed target
// is published as its own message keyed by building name.
type AssessmentMessage struct {
	RunID       string                `json:"run_id"`
	Window      domain.DateWindow     `json:"window"`
	GeneratedAt time.Time             `json:"generated_at"`
	Params      domain.RiskParams     `json:"params"`
	Target      domain.TargetLocation `json:"target"`
	Risk        domain.RiskAssessment `json:"risk"`
}

// Writer produces run results to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishRankings publishes the whole ranking as a single message keyed by run ID.
func (w *Writer) PublishRankings(ctx context.Context, run pipeline.RankingRun) error {
	msg, err := serializeRankings(run, domain.Clock().Now())
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write rankings: %w", err)
	}
	w.logger.Info("rankings published", "run_id", run.RunID, "topic", w.writer.Topic)
	return nil
}

// PublishAssessments publishes every assessed target in a single WriteMessages call.
func (w *Writer) PublishAssessments(ctx context.Context, run pipeline.AssessmentRun) error {
	if len(run.Assessments) == 0 {
		return nil
	}
	msgs, err := serializeAssessments(run, domain.Clock().Now())
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write assessments: %w", err)
	}
	w.logger.Info("assessments published", "run_id", run.RunID, "messages", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// EnsureTopic creates the topic on the cluster controller if it does not exist.
func EnsureTopic(ctx context.Context, brokers []string, topic string, partitions int) error {
	if len(brokers) == 0 {
		return errors.New("no brokers provided")
	}
	conn, err := kafkago.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}
	c, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer c.Close()

	if partitions <= 0 {
		partitions = 1
	}
	err = c.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: partitions, ReplicationFactor: 1})
	if err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}

func serializeRankings(run pipeline.RankingRun, now time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize rankings: %w", err)
	}
	return kafkago.Message{
		Key:     []byte(run.RunID),
		Value:   data,
		Headers: headers(KindRankings, run.RunID, run.Window, now),
	}, nil
}

func serializeAssessments(run pipeline.AssessmentRun, now time.Time) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, len(run.Assessments))
	for i, a := range run.Assessments {
		data, err := json.Marshal(AssessmentMessage{
			RunID:       run.RunID,
			Window:      run.Window,
			GeneratedAt: run.GeneratedAt,
			Params:      run.Params,
			Target:      a.Target,
			Risk:        a.Risk,
		})
		if err != nil {
			return nil, fmt.Errorf("serialize assessment %q: %w", a.Target.Name, err)
		}
		msgs[i] = kafkago.Message{
			Key:     []byte(a.Target.Name),
			Value:   data,
			Headers: headers(KindAssessment, run.RunID, run.Window, now),
		}
	}
	return msgs, nil
}

func headers(kind, runID string, window domain.DateWindow, now time.Time) []kafkago.Header {
	return []kafkago.Header{
		{Key: HeaderKind, Value: []byte(kind)},
		{Key: HeaderRunID, Value: []byte(runID)},
		{Key: HeaderWindow, Value: []byte(window.String())},
		{Key: HeaderPublishedAt, Value: []byte(now.UTC().Format(time.RFC3339))},
	}
}
