// Package mongo stores the ledger activity trail in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/executive-war-room/internal/domain/activity"
)

const (
	// ActivityCollectionName is the name of the activity collection in MongoDB
	ActivityCollectionName = "ledger_activity"
)

// ActivityRepository implements the activity.Repository interface for MongoDB
type ActivityRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewActivityRepository creates a new MongoDB activity repository
func NewActivityRepository(logger *slog.Logger, db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique activity id index and the per-event
// timeline index. It is safe to call on every start.
func (r *ActivityRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(ActivityCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "activity_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "occurred_at", Value: -1}},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create activity indexes", "error", err)
		return fmt.Errorf("failed to create activity indexes: %w", err)
	}
	return nil
}

// Create stores an activity after checking for duplicates.
// Returns ErrDuplicateActivity if the activity id was already recorded.
func (r *ActivityRepository) Create(ctx context.Context, a *activity.Activity) error {
	collection := r.db.Collection(ActivityCollectionName)

	var existing activity.Activity
	err := collection.FindOne(ctx, bson.M{"activity_id": a.ID}).Decode(&existing)
	switch {
	case err == nil:
		return activity.ErrDuplicateActivity{ID: a.ID}
	case !errors.Is(err, mongo.ErrNoDocuments):
		r.logger.Error("Failed to check for existing activity",
			"activity_id", a.ID,
			"error", err)
		return fmt.Errorf("failed to check for existing activity: %w", err)
	}

	if _, err := collection.InsertOne(ctx, a); err != nil {
		// Lost a race with a concurrent insert of the same activity
		if mongo.IsDuplicateKeyError(err) {
			return activity.ErrDuplicateActivity{ID: a.ID}
		}
		r.logger.Error("Failed to create activity",
			"activity_id", a.ID,
			"event_id", a.EventID,
			"error", err)
		return fmt.Errorf("failed to create activity: %w", err)
	}

	return nil
}

// GetByEventID retrieves paginated activities of an event, newest first
func (r *ActivityRepository) GetByEventID(ctx context.Context, eventID string, limit, offset int) ([]*activity.Activity, error) {
	collection := r.db.Collection(ActivityCollectionName)

	filter := bson.M{"event_id": eventID}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}, {Key: "activity_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get activities",
			"event_id", eventID,
			"error", err)
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}
	defer cursor.Close(ctx)

	activities := make([]*activity.Activity, 0)
	if err := cursor.All(ctx, &activities); err != nil {
		r.logger.Error("Failed to decode activities",
			"event_id", eventID,
			"error", err)
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}

	return activities, nil
}

// CountByEventID counts the recorded activities of an event
func (r *ActivityRepository) CountByEventID(ctx context.Context, eventID string) (int64, error) {
	collection := r.db.Collection(ActivityCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"event_id": eventID})
	if err != nil {
		r.logger.Error("Failed to count activities",
			"event_id", eventID,
			"error", err)
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}

	return count, nil
}
