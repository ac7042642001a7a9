package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoTournamentRepository struct {
	collection *mongo.Collection
}

func NewMongoTournamentRepository(database *mongo.Database) TournamentRepository {
	return &mongoTournamentRepository{collection: database.Collection(tournamentsCollection)}
}

func prepareTournamentDoc(t *models.Tournament) {
	t.Subscribers = nonNil(t.Subscribers)
	if t.Teams == nil {
		t.Teams = []models.Team{}
	}
}

func (r *mongoTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	prepareTournamentDoc(t)
	if _, err := r.collection.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrTournamentSlugConflict
		}
		return fmt.Errorf("tournament insert failed: %w", err)
	}
	return nil
}

func (r *mongoTournamentRepository) findOne(ctx context.Context, filter bson.M) (*models.Tournament, error) {
	var t models.Tournament
	if err := r.collection.FindOne(ctx, filter).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to fetch tournament: %w", err)
	}
	return &t, nil
}

func (r *mongoTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoTournamentRepository) GetBySlug(ctx context.Context, slug string) (*models.Tournament, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *mongoTournamentRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Tournament, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	tournaments := make([]models.Tournament, 0)
	if err := cursor.All(ctx, &tournaments); err != nil {
		return nil, fmt.Errorf("failed to decode tournaments: %w", err)
	}
	return tournaments, nil
}

func (r *mongoTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "starts_at", Value: -1}, {Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return r.find(ctx, query, opts)
}

func (r *mongoTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	prepareTournamentDoc(t)
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrTournamentSlugConflict
		}
		return fmt.Errorf("tournament update failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func (r *mongoTournamentRepository) updateOne(ctx context.Context, id string, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("tournament update failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func (r *mongoTournamentRepository) UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
}

func (r *mongoTournamentRepository) UpdateImageKey(ctx context.Context, id string, imageKey *string) error {
	now := time.Now().UTC()
	if imageKey == nil {
		return r.updateOne(ctx, id, bson.M{
			"$unset": bson.M{"image_key": ""},
			"$set":   bson.M{"updated_at": now},
		})
	}
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"image_key": *imageKey, "updated_at": now}})
}

func (r *mongoTournamentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("tournament delete failed: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func (r *mongoTournamentRepository) ListStartingBefore(ctx context.Context, status models.TournamentStatus, before time.Time) ([]models.Tournament, error) {
	filter := bson.M{"status": status, "starts_at": bson.M{"$lte": before}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}}))
}
