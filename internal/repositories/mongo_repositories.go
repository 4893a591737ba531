package repositories

import (
	"context"
	"time"

	"golang-food-checkout/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type journalRepository struct {
	collection *mongo.Collection
}

func NewJournalRepository(db *mongo.Database) JournalRepository {
	return &journalRepository{
		collection: db.Collection("checkout_journal"),
	}
}

func (r *journalRepository) Append(ctx context.Context, entry *models.CheckoutJournalEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return err
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = id
	}
	return nil
}

// ListBySession returns the newest entries first.
func (r *journalRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.CheckoutJournalEntry, error) {
	var entries []models.CheckoutJournalEntry

	filter := bson.M{"session_id": sessionID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// noopJournal is used when MongoDB is unavailable.
type noopJournal struct{}

func NewNoopJournalRepository() JournalRepository { return noopJournal{} }

func (noopJournal) Append(context.Context, *models.CheckoutJournalEntry) error { return nil }

func (noopJournal) ListBySession(context.Context, string, int) ([]models.CheckoutJournalEntry, error) {
	return nil, nil
}
