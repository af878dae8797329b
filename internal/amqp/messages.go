package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// BudgetSyncMessage asks the worker to push a user's budget to the remote
// store. It carries only the user and the local version; the worker reads
// the data itself.
type BudgetSyncMessage struct {
	UserID    string    `json:"user_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetSyncMessage(userID string, version int64) *BudgetSyncMessage {
	return &BudgetSyncMessage{
		UserID:    userID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *BudgetSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetSyncMessageFromJSON decodes a message and rejects ones without a user.
func BudgetSyncMessageFromJSON(data []byte) (*BudgetSyncMessage, error) {
	var msg BudgetSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("message has no user_id")
	}
	return &msg, nil
}
