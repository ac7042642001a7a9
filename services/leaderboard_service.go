package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/Dosada05/arena-hub/repositories"
)

const (
	defaultLeaderboardLimit = 100
	maxLeaderboardLimit     = 500
)

type LeaderboardService interface {
	List(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Get(ctx context.Context, username string) (*models.LeaderboardEntry, error)
	Upsert(ctx context.Context, username string, input LeaderboardInput) (*models.LeaderboardEntry, error)
}

type LeaderboardInput struct {
	Points int64 `json:"points"`
	Wins   int   `json:"wins"`
	Losses int   `json:"losses"`
	Kills  int   `json:"kills"`
}

type leaderboardService struct {
	repo      repositories.LeaderboardRepository
	publisher relay.Publisher
}

func NewLeaderboardService(repo repositories.LeaderboardRepository, publisher relay.Publisher) LeaderboardService {
	return &leaderboardService{repo: repo, publisher: publisher}
}

func (s *leaderboardService) List(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	entries, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	return entries, nil
}

func (s *leaderboardService) Get(ctx context.Context, username string) (*models.LeaderboardEntry, error) {
	entry, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrLeaderboardEntryNotFound) {
			return nil, ErrLeaderboardEntryNotFound
		}
		return nil, fmt.Errorf("failed to fetch leaderboard entry %s: %w", username, err)
	}
	return entry, nil
}

func (s *leaderboardService) Upsert(ctx context.Context, username string, input LeaderboardInput) (*models.LeaderboardEntry, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidationFailed)
	}
	if input.Wins < 0 || input.Losses < 0 || input.Kills < 0 {
		return nil, fmt.Errorf("%w: wins, losses and kills must not be negative", ErrValidationFailed)
	}

	entry := &models.LeaderboardEntry{
		Username:  username,
		Points:    input.Points,
		Wins:      input.Wins,
		Losses:    input.Losses,
		Kills:     input.Kills,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("leaderboard update failed: %w", err)
	}

	s.publisher.Publish(relay.EventLeaderboard, relay.LeaderboardEvent{Username: entry.Username})
	return entry, nil
}
