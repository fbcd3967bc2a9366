//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

// labelledPost mirrors one entry of data/fixtures/labelled_posts.json.
type labelledPost struct {
	Post   domain.Post `json:"post"`
	Expect struct {
		PrimaryThreat string `json:"primary_threat"`
		Kept          bool   `json:"kept"`
	} `json:"expect"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("threat-signal-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic %s", topic)
}

// loadLabelledPosts reads the labelled fixture and stamps each post with a
// recent timestamp.
func loadLabelledPosts(t *testing.T) []labelledPost {
	t.Helper()

	data, err := os.ReadFile("../../data/fixtures/labelled_posts.json")
	require.NoError(t, err, "read labelled fixture")

	var cases []labelledPost
	require.NoError(t, json.Unmarshal(data, &cases))
	require.NotEmpty(t, cases)

	now := time.Now().UTC()
	for i := range cases {
		cases[i].Post.Timestamp = now.Add(-time.Duration(i) * time.Second)
	}
	return cases
}

func postMessage(t *testing.T, p domain.Post) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(p)
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(p.ID), Value: payload, Time: p.Timestamp}
}

func uniqueGroup(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
