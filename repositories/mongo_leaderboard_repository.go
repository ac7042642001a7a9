package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/arena-hub/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoLeaderboardRepository struct {
	collection *mongo.Collection
}

func NewMongoLeaderboardRepository(database *mongo.Database) LeaderboardRepository {
	return &mongoLeaderboardRepository{collection: database.Collection(leaderboardCollection)}
}

func (r *mongoLeaderboardRepository) List(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "points", Value: -1}, {Key: "wins", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard from database: %w", err)
	}
	entries := make([]models.LeaderboardEntry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return entries, nil
}

func (r *mongoLeaderboardRepository) GetByUsername(ctx context.Context, username string) (*models.LeaderboardEntry, error) {
	var e models.LeaderboardEntry
	if err := r.collection.FindOne(ctx, bson.M{"_id": NormalizeKey(username)}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrLeaderboardEntryNotFound
		}
		return nil, fmt.Errorf("failed to fetch leaderboard entry: %w", err)
	}
	return &e, nil
}

func (r *mongoLeaderboardRepository) Upsert(ctx context.Context, e *models.LeaderboardEntry) error {
	e.UsernameKey = NormalizeKey(e.Username)
	update := bson.M{"$set": bson.M{
		"username":   e.Username,
		"points":     e.Points,
		"wins":       e.Wins,
		"losses":     e.Losses,
		"kills":      e.Kills,
		"updated_at": e.UpdatedAt,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": e.UsernameKey}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("leaderboard upsert failed: %w", err)
	}
	return nil
}
