package messages

import (
	"encoding/json"
	"fmt"
)

// NewMessage builds a Message with v marshaled as its payload.
func NewMessage(t MessageType, requestID string, v interface{}) (*Message, error) {
	msg := &Message{
		Type:      t,
		RequestID: requestID,
	}
	if v == nil {
		return msg, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %v", t, err)
	}
	msg.Payload = payload
	return msg, nil
}

func SerializeMessage(m *Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %v", err)
	}
	return b, nil
}

func DeserializeMessage(data []byte) (*Message, error) {
	if len(data) > MessageBufferSize {
		return nil, fmt.Errorf("message of %d bytes exceeds limit of %d", len(data), MessageBufferSize)
	}
	message := &Message{}
	if err := json.Unmarshal(data, message); err != nil {
		return nil, fmt.Errorf("failed to deserialize message: %v", err)
	}
	if message.Type == "" {
		return nil, fmt.Errorf("message has no type")
	}
	return message, nil
}

// DecodePayload unmarshals the message payload into v.
func DecodePayload(m *Message, v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("message of type %s has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %v", m.Type, err)
	}
	return nil
}
