package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckoutJournalEntry - MongoDB. One row per checkout step a session took.
type CheckoutJournalEntry struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	SessionID string                 `bson:"session_id" json:"session_id"`
	UserID    string                 `bson:"user_id" json:"user_id"`
	Action    string                 `bson:"action" json:"action"`
	Stage     string                 `bson:"stage" json:"stage"`
	OrderID   string                 `bson:"order_id,omitempty" json:"order_id,omitempty"`
	Error     string                 `bson:"error,omitempty" json:"error,omitempty"`
	ErrorKind string                 `bson:"error_kind,omitempty" json:"error_kind,omitempty"`
	Details   map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
}
