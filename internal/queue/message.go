package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// MessageVersion is the payload version producers write.
const MessageVersion = 1

var ErrMissingSourceKey = errors.New("message has no source key")

// Message asks the worker to analyze an object already staged in the store.
type Message struct {
	SourceKey     string `json:"sourceKey"`
	FileName      string `json:"fileName"`
	ContentType   string `json:"contentType,omitempty"`
	QuestionSetID string `json:"questionSetId,omitempty"`
	OwnerID       string `json:"ownerId"`
	RequestID     string `json:"requestId,omitempty"`
	EnqueuedAt    string `json:"enqueuedAt"`
	Version       int    `json:"version"`
}

// Validate checks the fields the worker cannot do without.
func (m Message) Validate() error {
	if strings.TrimSpace(m.SourceKey) == "" {
		return ErrMissingSourceKey
	}
	return nil
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
