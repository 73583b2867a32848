package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DatasetSeededMessage announces that the record store was (re)seeded.
// Replicas react by dropping their cached reports.
type DatasetSeededMessage struct {
	BatchID   uuid.UUID `json:"batchId"`
	Count     int       `json:"count"`
	Policy    string    `json:"policy"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetSeededMessage creates a message stamped with the current time
func NewDatasetSeededMessage(batchID uuid.UUID, count int, policy string) *DatasetSeededMessage {
	return &DatasetSeededMessage{
		BatchID:   batchID,
		Count:     count,
		Policy:    policy,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetSeededMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetSeededMessageFromJSON creates a message from JSON bytes
func DatasetSeededMessageFromJSON(data []byte) (*DatasetSeededMessage, error) {
	var msg DatasetSeededMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
