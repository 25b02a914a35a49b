package queue

import (
	"encoding/json"
	"fmt"

	"github.com/soltixdb/weathermetrics/internal/models"
)

// ContentTypeJSON is the content type of every event payload
const ContentTypeJSON = "application/json"

// NewReadingMessage builds the message announcing a recorded reading.
// The sensor id is the message key.
func NewReadingMessage(subject string, event models.ReadingEvent) (Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal reading event: %w", err)
	}

	return Message{
		Subject: subject,
		Key:     event.SensorID,
		Data:    data,
		Headers: map[string]string{
			HeaderReadingID:   event.ID,
			HeaderContentType: ContentTypeJSON,
		},
	}, nil
}

// DecodeReadingEvent parses a message produced by NewReadingMessage
func DecodeReadingEvent(msg Message) (models.ReadingEvent, error) {
	var event models.ReadingEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return models.ReadingEvent{}, fmt.Errorf("failed to unmarshal reading event: %w", err)
	}
	return event, nil
}
