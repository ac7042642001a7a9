package repositories

import (
	"context"
	"database/sql"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store собирает репозитории одного бэкенда.
type Store struct {
	Users       UserRepository
	Tournaments TournamentRepository
	Memories    MemoryRepository
	Leaderboard LeaderboardRepository
}

func NewPostgresStore(db *sql.DB) Store {
	return Store{
		Users:       NewPostgresUserRepository(db),
		Tournaments: NewPostgresTournamentRepository(db),
		Memories:    NewPostgresMemoryRepository(db),
		Leaderboard: NewPostgresLeaderboardRepository(db),
	}
}

// NewMongoStore creates the Mongo-backed repositories and makes sure the indexes exist.
func NewMongoStore(ctx context.Context, database *mongo.Database) (Store, error) {
	if err := EnsureMongoIndexes(ctx, database); err != nil {
		return Store{}, err
	}
	return Store{
		Users:       NewMongoUserRepository(database),
		Tournaments: NewMongoTournamentRepository(database),
		Memories:    NewMongoMemoryRepository(database),
		Leaderboard: NewMongoLeaderboardRepository(database),
	}, nil
}

func NewInMemoryStore() Store {
	s := newInMemoryData()
	return Store{
		Users:       &inMemoryUserRepository{data: s},
		Tournaments: &inMemoryTournamentRepository{data: s},
		Memories:    &inMemoryMemoryRepository{data: s},
		Leaderboard: &inMemoryLeaderboardRepository{data: s},
	}
}
