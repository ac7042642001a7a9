package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/Dosada05/arena-hub/repositories"
	"github.com/Dosada05/arena-hub/storage"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	tournamentImagePrefix = "tournaments"
	maxSlugAttempts       = 3
)

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	List(ctx context.Context, filter TournamentFilter) ([]models.TournamentView, error)
	// Get принимает id или slug.
	Get(ctx context.Context, idOrSlug string) (*models.TournamentView, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) (*models.Tournament, error)
	UploadImage(ctx context.Context, id string, contentType string, reader io.Reader) (*models.Tournament, error)
	// StartDueTournaments переводит открытые турниры с наступившей датой в in_progress.
	StartDueTournaments(ctx context.Context, now time.Time) (int, error)
}

type CreateTournamentInput struct {
	Title       string                   `json:"title"`
	StartsAt    time.Time                `json:"starts_at"`
	Prize       string                   `json:"prize"`
	Description string                   `json:"description"`
	Format      models.TournamentFormat  `json:"format"`
	Status      *models.TournamentStatus `json:"status,omitempty"`
}

type TournamentFilter struct {
	Status *models.TournamentStatus
	Limit  int
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
	uploader       storage.FileUploader
	publisher      relay.Publisher
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	publisher relay.Publisher,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		uploader:       uploader,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTournamentTitleRequired
	}
	if !input.Format.Valid() {
		return nil, ErrTournamentInvalidFormat
	}
	if input.StartsAt.IsZero() {
		return nil, ErrTournamentDateRequired
	}
	status := models.StatusOpen
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrTournamentInvalidStatus
		}
		status = *input.Status
	}

	now := time.Now().UTC()
	tournament := &models.Tournament{
		ID:          uuid.NewString(),
		Title:       title,
		StartsAt:    input.StartsAt.UTC(),
		Prize:       strings.TrimSpace(input.Prize),
		Description: strings.TrimSpace(input.Description),
		Format:      input.Format,
		Status:      status,
		Subscribers: []string{},
		Teams:       []models.Team{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	base := slug.Make(title)
	if base == "" {
		base = "tournament"
	}
	tournament.Slug = base

	// Пробуем слаг из названия, при конфликте добавляем короткий суффикс
	var err error
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		err = s.tournamentRepo.Create(ctx, tournament)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrTournamentSlugConflict) {
			return nil, fmt.Errorf("failed to create tournament: %w", err)
		}
		tournament.Slug = base + "-" + uuid.NewString()[:8]
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament after %d attempts: %w", maxSlugAttempts, err)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", tournament.ID),
		slog.String("slug", tournament.Slug),
		slog.String("format", string(tournament.Format)))

	startsAt := tournament.StartsAt
	s.publisher.Publish(relay.EventTournaments, relay.TournamentEvent{
		Action:       relay.ActionCreate,
		TournamentID: tournament.ID,
		Title:        tournament.Title,
		Slug:         tournament.Slug,
		Status:       string(tournament.Status),
		StartsAt:     &startsAt,
	})
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter TournamentFilter) ([]models.TournamentView, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, ErrTournamentInvalidStatus
	}
	tournaments, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{
		Status: filter.Status,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}

	profiles, err := s.loadProfiles(ctx, tournaments...)
	if err != nil {
		return nil, err
	}

	views := make([]models.TournamentView, 0, len(tournaments))
	for i := range tournaments {
		views = append(views, s.toView(&tournaments[i], profiles))
	}
	return views, nil
}

func (s *tournamentService) Get(ctx context.Context, idOrSlug string) (*models.TournamentView, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, idOrSlug)
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		tournament, err = s.tournamentRepo.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", idOrSlug, err)
	}

	profiles, err := s.loadProfiles(ctx, *tournament)
	if err != nil {
		return nil, err
	}
	view := s.toView(tournament, profiles)
	return &view, nil
}

func (s *tournamentService) Delete(ctx context.Context, id string) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to get tournament %s: %w", id, err)
	}

	// Списки турниров у пользователей не чистим.
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %s: %w", id, err)
	}

	if tournament.ImageKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *tournament.ImageKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete tournament image",
				slog.String("tournament_id", id),
				slog.String("key", *tournament.ImageKey),
				slog.Any("error", err))
		}
	}

	s.logger.InfoContext(ctx, "tournament deleted", slog.String("tournament_id", id))
	s.publisher.Publish(relay.EventTournaments, relay.TournamentEvent{
		Action:       relay.ActionDelete,
		TournamentID: id,
	})
	return nil
}

func (s *tournamentService) UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) (*models.Tournament, error) {
	if !status.Valid() {
		return nil, ErrTournamentInvalidStatus
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	if !isValidStatusTransition(tournament.Status, status) {
		return nil, fmt.Errorf("%w: from '%s' to '%s'", ErrTournamentInvalidStatusTransition, tournament.Status, status)
	}
	if tournament.Status == status {
		return tournament, nil
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to update status of tournament %s: %w", id, err)
	}
	tournament.Status = status
	tournament.UpdatedAt = time.Now().UTC()

	s.publisher.Publish(relay.EventTournaments, relay.TournamentEvent{
		Action:       relay.ActionStatus,
		TournamentID: id,
		Status:       string(status),
	})
	return tournament, nil
}

func (s *tournamentService) UploadImage(ctx context.Context, id string, contentType string, reader io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrStorageNotConfigured
	}
	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidImage, contentType)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}

	key := fmt.Sprintf("%s/%s/%s%s", tournamentImagePrefix, id, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("failed to upload tournament image: %w", err)
	}

	if err := s.tournamentRepo.UpdateImageKey(ctx, id, &key); err != nil {
		// Новый файл уже залит, убираем его, чтобы не висел
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to clean up uploaded image", slog.String("key", key), slog.Any("error", delErr))
		}
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to save image key for tournament %s: %w", id, err)
	}

	if old := tournament.ImageKey; old != nil && *old != key {
		if err := s.uploader.Delete(ctx, *old); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous tournament image", slog.String("key", *old), slog.Any("error", err))
		}
	}

	tournament.ImageKey = &key
	populateImageURL(tournament, s.uploader)

	s.publisher.Publish(relay.EventTournaments, relay.TournamentEvent{
		Action:       relay.ActionUpdate,
		TournamentID: id,
	})
	return tournament, nil
}

func (s *tournamentService) StartDueTournaments(ctx context.Context, now time.Time) (int, error) {
	due, err := s.tournamentRepo.ListStartingBefore(ctx, models.StatusOpen, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list due tournaments: %w", err)
	}

	started := 0
	for _, t := range due {
		if err := s.tournamentRepo.UpdateStatus(ctx, t.ID, models.StatusInProgress); err != nil {
			s.logger.ErrorContext(ctx, "failed to start tournament", slog.String("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		started++
		s.publisher.Publish(relay.EventTournaments, relay.TournamentEvent{
			Action:       relay.ActionStatus,
			TournamentID: t.ID,
			Status:       string(models.StatusInProgress),
		})
	}
	return started, nil
}

// loadProfiles одним запросом подтягивает всех участников перечисленных турниров.
func (s *tournamentService) loadProfiles(ctx context.Context, tournaments ...models.Tournament) (map[string]models.PublicUser, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, t := range tournaments {
		for _, id := range t.Subscribers {
			add(id)
		}
		for _, team := range t.Teams {
			add(team.CaptainID)
			for _, m := range team.Members {
				add(m.UserID)
			}
		}
	}

	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load participant profiles: %w", err)
	}
	profiles := make(map[string]models.PublicUser, len(users))
	for i := range users {
		profiles[users[i].ID] = users[i].Public()
	}
	return profiles, nil
}

func (s *tournamentService) toView(t *models.Tournament, profiles map[string]models.PublicUser) models.TournamentView {
	populateImageURL(t, s.uploader)

	profile := func(id string) models.PublicUser {
		if p, ok := profiles[id]; ok {
			return p
		}
		return models.PublicUser{ID: id}
	}

	view := models.TournamentView{
		Tournament:         *t,
		SubscriberProfiles: make([]models.PublicUser, 0, len(t.Subscribers)),
	}
	for _, id := range t.Subscribers {
		view.SubscriberProfiles = append(view.SubscriberProfiles, profile(id))
	}
	if t.Format.IsTeam() {
		view.TeamViews = make([]models.TeamView, 0, len(t.Teams))
		for _, team := range t.Teams {
			tv := models.TeamView{
				Captain: profile(team.CaptainID),
				Members: make([]models.TeamMemberView, 0, len(team.Members)),
			}
			for _, m := range team.Members {
				p := profile(m.UserID)
				if p.Username == "" {
					p.Username = m.Username
					p.Nickname = m.Nickname
				}
				tv.Members = append(tv.Members, models.TeamMemberView{PublicUser: p, Status: m.Status})
			}
			view.TeamViews = append(view.TeamViews, tv)
		}
	}
	return view
}
