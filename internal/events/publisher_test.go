package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatermillEventPublisher_PublishesEnvelope(t *testing.T) {
	logger := testLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "pipeline-events")
	require.NoError(t, err)

	publisher := NewWatermillEventPublisher(pubSub, "pipeline-events", logger)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	event := NewEvent(ExamReady, at, ExamEventData{ExamID: 7, DocumentID: 3, OwnerID: "u1", TotalQuestions: 10})
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, "exam.ready", msg.Metadata.Get("event_type"))

		var decoded struct {
			Type      EventType     `json:"type"`
			Source    string        `json:"source"`
			Version   string        `json:"version"`
			Timestamp time.Time     `json:"timestamp"`
			Data      ExamEventData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, ExamReady, decoded.Type)
		assert.Equal(t, EventSource, decoded.Source)
		assert.Equal(t, EventVersion, decoded.Version)
		assert.True(t, at.Equal(decoded.Timestamp))
		assert.EqualValues(t, 7, decoded.Data.ExamID)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	require.NoError(t, mock.Publish(ctx, NewEvent(DocumentAnalyzed, time.Now(), DocumentEventData{DocumentID: 1})))
	require.NoError(t, mock.Publish(ctx, NewEvent(DocumentFailed, time.Now(), DocumentEventData{DocumentID: 2})))

	assert.Len(t, mock.GetPublishedEvents(), 2)
	assert.Len(t, mock.EventsOfType(DocumentFailed), 1)

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())
}
