package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/Dosada05/arena-hub/repositories"
	"github.com/google/uuid"
)

const (
	defaultMemoriesLimit = 50
	maxMemoriesLimit     = 100
)

type MemoryService interface {
	Create(ctx context.Context, authorID string, input CreateMemoryInput) (*models.Memory, error)
	List(ctx context.Context, filter MemoryFilter) ([]models.Memory, error)
	ListByUsername(ctx context.Context, username string, filter MemoryFilter) ([]models.Memory, error)
	// Delete разрешён автору и персоналу (helper и выше).
	Delete(ctx context.Context, id string, actor *models.User) error
	ToggleLike(ctx context.Context, id, userID string) (*LikeResult, error)
	IncrementShare(ctx context.Context, id string) (int64, error)
}

type CreateMemoryInput struct {
	Title       string `json:"title"`
	VideoURL    string `json:"videoUrl"`
	Description string `json:"description"`
}

type MemoryFilter struct {
	AuthorID string
	ViewerID string
	Limit    int
	Offset   int
}

type LikeResult struct {
	Likes   int  `json:"likes"`
	IsLiked bool `json:"is_liked"`
}

type memoryService struct {
	memoryRepo repositories.MemoryRepository
	userRepo   repositories.UserRepository
	publisher  relay.Publisher
	logger     *slog.Logger
}

func NewMemoryService(
	memoryRepo repositories.MemoryRepository,
	userRepo repositories.UserRepository,
	publisher relay.Publisher,
	logger *slog.Logger,
) MemoryService {
	return &memoryService{
		memoryRepo: memoryRepo,
		userRepo:   userRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

func validateVideoURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrMemoryInvalidVideoURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrMemoryInvalidVideoURL
	}
	return nil
}

func (s *memoryService) Create(ctx context.Context, authorID string, input CreateMemoryInput) (*models.Memory, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrMemoryTitleRequired
	}
	videoURL := strings.TrimSpace(input.VideoURL)
	if err := validateVideoURL(videoURL); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if utf8.RuneCountInString(description) > models.MemoryDescriptionMaxLen {
		return nil, fmt.Errorf("%w: max %d characters", ErrMemoryDescriptionTooLong, models.MemoryDescriptionMaxLen)
	}

	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get author %s: %w", authorID, err)
	}

	memory := &models.Memory{
		ID:          uuid.NewString(),
		Title:       title,
		VideoURL:    videoURL,
		Description: description,
		AuthorID:    author.ID,
		Likes:       []string{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.memoryRepo.Create(ctx, memory); err != nil {
		return nil, fmt.Errorf("failed to create memory: %w", err)
	}
	public := author.Public()
	memory.Author = &public
	memory.Prepare(author.ID)

	s.publisher.Publish(relay.EventMemory, relay.MemoryEvent{Action: relay.ActionCreate, MemoryID: memory.ID})
	return memory, nil
}

func (s *memoryService) List(ctx context.Context, filter MemoryFilter) ([]models.Memory, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultMemoriesLimit
	}
	if limit > maxMemoriesLimit {
		limit = maxMemoriesLimit
	}
	memories, err := s.memoryRepo.List(ctx, repositories.ListMemoriesFilter{
		AuthorID: filter.AuthorID,
		Limit:    limit,
		Offset:   filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	if err := s.attachAuthors(ctx, memories); err != nil {
		return nil, err
	}
	for i := range memories {
		memories[i].Prepare(filter.ViewerID)
	}
	return memories, nil
}

func (s *memoryService) ListByUsername(ctx context.Context, username string, filter MemoryFilter) ([]models.Memory, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	filter.AuthorID = author.ID
	return s.List(ctx, filter)
}

func (s *memoryService) Delete(ctx context.Context, id string, actor *models.User) error {
	if actor == nil {
		return ErrAuthenticationFailed
	}
	memory, err := s.memoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMemoryNotFound) {
			return ErrMemoryNotFound
		}
		return fmt.Errorf("failed to get memory %s: %w", id, err)
	}
	if memory.AuthorID != actor.ID && !actor.Role.IsStaff() {
		return ErrForbiddenOperation
	}

	if err := s.memoryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrMemoryNotFound) {
			return ErrMemoryNotFound
		}
		return fmt.Errorf("failed to delete memory %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "memory deleted", slog.String("memory_id", id), slog.String("actor_id", actor.ID))
	s.publisher.Publish(relay.EventMemory, relay.MemoryEvent{Action: relay.ActionDelete, MemoryID: id})
	return nil
}

func (s *memoryService) ToggleLike(ctx context.Context, id, userID string) (*LikeResult, error) {
	memory, err := s.memoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMemoryNotFound) {
			return nil, ErrMemoryNotFound
		}
		return nil, fmt.Errorf("failed to get memory %s: %w", id, err)
	}

	updated, err := s.memoryRepo.SetLike(ctx, id, userID, !memory.LikedBy(userID))
	if err != nil {
		if errors.Is(err, repositories.ErrMemoryNotFound) {
			return nil, ErrMemoryNotFound
		}
		return nil, fmt.Errorf("failed to toggle like on memory %s: %w", id, err)
	}

	result := &LikeResult{Likes: len(updated.Likes), IsLiked: updated.LikedBy(userID)}
	likes := result.Likes
	s.publisher.Publish(relay.EventMemory, relay.MemoryEvent{Action: relay.ActionLike, MemoryID: id, Likes: &likes})
	return result, nil
}

func (s *memoryService) IncrementShare(ctx context.Context, id string) (int64, error) {
	shares, err := s.memoryRepo.IncrementShares(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMemoryNotFound) {
			return 0, ErrMemoryNotFound
		}
		return 0, fmt.Errorf("failed to share memory %s: %w", id, err)
	}
	s.publisher.Publish(relay.EventMemory, relay.MemoryEvent{Action: relay.ActionShare, MemoryID: id, Shares: &shares})
	return shares, nil
}

func (s *memoryService) attachAuthors(ctx context.Context, memories []models.Memory) error {
	ids := make([]string, 0, len(memories))
	seen := make(map[string]struct{}, len(memories))
	for _, m := range memories {
		if _, ok := seen[m.AuthorID]; !ok {
			seen[m.AuthorID] = struct{}{}
			ids = append(ids, m.AuthorID)
		}
	}
	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load memory authors: %w", err)
	}
	byID := make(map[string]models.PublicUser, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Public()
	}
	for i := range memories {
		if author, ok := byID[memories[i].AuthorID]; ok {
			memories[i].Author = &author
		}
	}
	return nil
}
