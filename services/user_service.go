package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/Dosada05/arena-hub/repositories"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

const (
	defaultSearchLimit   = 10
	maxSearchLimit       = 50
	searchCandidateLimit = 500
	maxSocialLinks       = 10
	maxSkills            = 20
	maxSkillLength       = 32
)

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

type UserService interface {
	// SignIn создаёт пользователя при первом входе или синхронизирует имя и аватар.
	SignIn(ctx context.Context, identity models.ExternalIdentity) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.PublicUser, error)
	UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error)
	SetRole(ctx context.Context, actor *models.User, username string, role models.UserRole) (*models.User, error)
}

type UpdateProfileInput struct {
	Nickname    *string           `json:"nickname,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`
	Skills      []string          `json:"skills,omitempty"`
}

type userService struct {
	userRepo  repositories.UserRepository
	publisher relay.Publisher
	logger    *slog.Logger
}

func NewUserService(userRepo repositories.UserRepository, publisher relay.Publisher, logger *slog.Logger) UserService {
	return &userService{
		userRepo:  userRepo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *userService) SignIn(ctx context.Context, identity models.ExternalIdentity) (*models.User, error) {
	username := strings.TrimSpace(identity.Username)
	if identity.ExternalID == "" || username == "" {
		return nil, fmt.Errorf("%w: external identity is incomplete", ErrAuthenticationFailed)
	}

	now := time.Now().UTC()
	user, err := s.userRepo.GetByExternalID(ctx, identity.ExternalID)
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		user = &models.User{
			ID:          uuid.NewString(),
			ExternalID:  identity.ExternalID,
			Username:    username,
			UsernameKey: repositories.NormalizeKey(username),
			AvatarURL:   identity.AvatarURL,
			Role:        models.RoleUser,
			Tournaments: []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrUserConflict) {
				return nil, ErrUsernameConflict
			}
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID), slog.String("username", user.Username))
		s.publisher.Publish(relay.EventUser, relay.UserEvent{Action: relay.ActionCreate, UserID: user.ID})
		return user, nil

	case err != nil:
		return nil, fmt.Errorf("failed to get user by external id: %w", err)
	}

	if user.Username == username && user.AvatarURL == identity.AvatarURL {
		return user, nil
	}
	oldUsername, oldKey := user.Username, user.UsernameKey
	user.Username = username
	user.UsernameKey = repositories.NormalizeKey(username)
	user.AvatarURL = identity.AvatarURL
	user.UpdatedAt = now
	err = s.userRepo.Update(ctx, user)
	if errors.Is(err, repositories.ErrUserConflict) && user.UsernameKey != oldKey {
		// Новое имя у провайдера уже занято: вход не блокируем, синхронизируем только аватар.
		s.logger.WarnContext(ctx, "provider username is taken, keeping the stored one",
			slog.String("user_id", user.ID),
			slog.String("stored", oldUsername),
			slog.String("provider", username))
		user.Username, user.UsernameKey = oldUsername, oldKey
		err = s.userRepo.Update(ctx, user)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrUserConflict) {
			return nil, ErrUsernameConflict
		}
		return nil, fmt.Errorf("failed to sync user %s: %w", user.ID, err)
	}
	s.publisher.Publish(relay.EventUser, relay.UserEvent{Action: relay.ActionUpdate, UserID: user.ID})
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	return user, nil
}

// Search ранжирует кандидатов нечётким поиском по имени и нику.
func (s *userService) Search(ctx context.Context, query string, limit int) ([]models.PublicUser, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrValidationFailed)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	candidates, err := s.userRepo.Search(ctx, query, searchCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	// Каждому пользователю соответствуют две строки: имя и ник
	targets := make([]string, 0, len(candidates)*2)
	owners := make([]int, 0, len(candidates)*2)
	for i, u := range candidates {
		targets = append(targets, u.Username)
		owners = append(owners, i)
		if u.Nickname != "" {
			targets = append(targets, u.Nickname)
			owners = append(owners, i)
		}
	}

	ranks := fuzzy.RankFindFold(query, targets)
	sort.Sort(ranks)

	result := make([]models.PublicUser, 0, limit)
	added := make(map[int]struct{}, limit)
	for _, rank := range ranks {
		idx := owners[rank.OriginalIndex]
		if _, ok := added[idx]; ok {
			continue
		}
		added[idx] = struct{}{}
		result = append(result, candidates[idx].Public())
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Nickname != nil {
		nickname := strings.TrimSpace(*input.Nickname)
		if !nicknamePattern.MatchString(nickname) {
			return nil, ErrInvalidNickname
		}
		user.Nickname = nickname
	}
	if input.SocialLinks != nil {
		links, err := cleanSocialLinks(input.SocialLinks)
		if err != nil {
			return nil, err
		}
		user.SocialLinks = links
	}
	if input.Skills != nil {
		skills, err := cleanSkills(input.Skills)
		if err != nil {
			return nil, err
		}
		user.Skills = skills
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile of user %s: %w", userID, err)
	}

	s.publisher.Publish(relay.EventProfile, relay.UserEvent{Action: relay.ActionUpdate, UserID: user.ID})
	return user, nil
}

func (s *userService) SetRole(ctx context.Context, actor *models.User, username string, role models.UserRole) (*models.User, error) {
	if actor == nil || !actor.Role.AtLeast(models.RoleAdmin) {
		return nil, ErrForbiddenOperation
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role '%s'", ErrValidationFailed, role)
	}
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update role of user %s: %w", user.ID, err)
	}

	s.logger.InfoContext(ctx, "user role changed",
		slog.String("user_id", user.ID),
		slog.String("role", string(role)),
		slog.String("actor_id", actor.ID))
	s.publisher.Publish(relay.EventUser, relay.UserEvent{Action: relay.ActionUpdate, UserID: user.ID})
	return user, nil
}

func cleanSocialLinks(links map[string]string) (map[string]string, error) {
	if len(links) > maxSocialLinks {
		return nil, fmt.Errorf("%w: at most %d social links", ErrValidationFailed, maxSocialLinks)
	}
	cleaned := make(map[string]string, len(links))
	for name, raw := range links {
		name = strings.ToLower(strings.TrimSpace(name))
		raw = strings.TrimSpace(raw)
		if name == "" || raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("%w: social link '%s' must be an absolute http(s) url", ErrValidationFailed, name)
		}
		cleaned[name] = raw
	}
	return cleaned, nil
}

func cleanSkills(skills []string) ([]string, error) {
	cleaned := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if len(skill) > maxSkillLength {
			return nil, fmt.Errorf("%w: skill '%s' is longer than %d characters", ErrValidationFailed, skill, maxSkillLength)
		}
		key := strings.ToLower(skill)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, skill)
	}
	if len(cleaned) > maxSkills {
		return nil, fmt.Errorf("%w: at most %d skills", ErrValidationFailed, maxSkills)
	}
	return cleaned, nil
}
