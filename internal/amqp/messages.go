package amqp

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"fintrack/internal/core"
)

// TransactionRecorded announces a stored transaction. Consumers re-read the
// row by TransactionID, so the message stays small and never goes stale.
type TransactionRecorded struct {
	MessageID     string    `json:"message_id"`
	TransactionID int64     `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	Period        string    `json:"period"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionRecorded(tx core.Transaction) *TransactionRecorded {
	return &TransactionRecorded{
		MessageID:     uuid.NewString(),
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Period:        tx.Date.Period().Key(),
		Timestamp:     time.Now().UTC(),
	}
}

func (m *TransactionRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedFromJSON(data []byte) (*TransactionRecorded, error) {
	var msg TransactionRecorded
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
