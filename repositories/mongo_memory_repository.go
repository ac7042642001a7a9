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

type mongoMemoryRepository struct {
	collection *mongo.Collection
}

func NewMongoMemoryRepository(database *mongo.Database) MemoryRepository {
	return &mongoMemoryRepository{collection: database.Collection(memoriesCollection)}
}

func (r *mongoMemoryRepository) Create(ctx context.Context, m *models.Memory) error {
	m.Likes = nonNil(m.Likes)
	if _, err := r.collection.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("memory insert failed: %w", err)
	}
	return nil
}

func (r *mongoMemoryRepository) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	var m models.Memory
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMemoryNotFound
		}
		return nil, fmt.Errorf("failed to fetch memory: %w", err)
	}
	m.LikeCount = len(m.Likes)
	return &m, nil
}

func (r *mongoMemoryRepository) List(ctx context.Context, filter ListMemoriesFilter) ([]models.Memory, error) {
	query := bson.M{}
	if filter.AuthorID != "" {
		query["author_id"] = filter.AuthorID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	memories := make([]models.Memory, 0)
	if err := cursor.All(ctx, &memories); err != nil {
		return nil, fmt.Errorf("failed to decode memories: %w", err)
	}
	for i := range memories {
		memories[i].LikeCount = len(memories[i].Likes)
	}
	return memories, nil
}

func (r *mongoMemoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("memory delete failed: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrMemoryNotFound
	}
	return nil
}

func (r *mongoMemoryRepository) SetLike(ctx context.Context, id, userID string, liked bool) (*models.Memory, error) {
	update := bson.M{"$pull": bson.M{"likes": userID}}
	if liked {
		update = bson.M{"$addToSet": bson.M{"likes": userID}}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var m models.Memory
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMemoryNotFound
		}
		return nil, fmt.Errorf("memory like update failed: %w", err)
	}
	m.LikeCount = len(m.Likes)
	return &m, nil
}

func (r *mongoMemoryRepository) IncrementShares(ctx context.Context, id string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"shares": 1})

	var res struct {
		Shares int64 `bson:"shares"`
	}
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"shares": 1}}, opts).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrMemoryNotFound
		}
		return 0, fmt.Errorf("memory share update failed: %w", err)
	}
	return res.Shares, nil
}
