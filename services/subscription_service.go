package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/relay"
	"github.com/Dosada05/arena-hub/repositories"
)

// SubscriptionService управляет вступлением в турнир, выходом и ответами на приглашения в команду.
//
// Проверки и запись не атомарны: два одновременных Join одного пользователя
// могут оба пройти проверку. Блокировок нет.
type SubscriptionService interface {
	Join(ctx context.Context, tournamentID, userID string, teammates []string) (*models.Tournament, error)
	Leave(ctx context.Context, tournamentID, userID string) (*models.Tournament, error)
	RespondToInvitation(ctx context.Context, tournamentID, userID string, accept bool) (*models.Tournament, error)
}

type subscriptionService struct {
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
	publisher      relay.Publisher
	logger         *slog.Logger
}

func NewSubscriptionService(
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	publisher relay.Publisher,
	logger *slog.Logger,
) SubscriptionService {
	return &subscriptionService{
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *subscriptionService) Join(ctx context.Context, tournamentID, userID string, teammates []string) (*models.Tournament, error) {
	// 1. Турнир существует
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	// 2. Регистрация открыта
	if tournament.Status != models.StatusOpen {
		return nil, ErrRegistrationClosed
	}

	// 3. У пользователя есть игровой ник
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasNickname() {
		return nil, ErrProfileIncomplete
	}

	// 4. Пользователь ещё не участвует
	if tournament.Enrolled(user.ID) {
		return nil, ErrAlreadyJoined
	}

	var team *models.Team
	var mates []*models.User
	if tournament.Format.IsTeam() {
		// 5. Размер команды
		names := cleanTeammateNames(teammates)
		if len(names) != tournament.Format.TeammateCount() {
			return nil, fmt.Errorf("%w: %s requires %d, got %d",
				ErrInvalidTeamSize, tournament.Format, tournament.Format.TeammateCount(), len(names))
		}

		// 6. Без повторов и без себя
		if err := checkDistinctTeammates(names, user); err != nil {
			return nil, err
		}

		// 7. Каждое имя принадлежит зарегистрированному пользователю
		mates, err = s.resolveTeammates(ctx, names)
		if err != nil {
			return nil, err
		}

		// 8. У тиммейтов есть игровой ник
		for _, mate := range mates {
			if !mate.HasNickname() {
				return nil, fmt.Errorf("%w: %s", ErrTeammateProfileIncomplete, mate.Username)
			}
		}

		// 9. Тиммейты не заняты в этом турнире
		for _, mate := range mates {
			if tournament.Enrolled(mate.ID) {
				return nil, fmt.Errorf("%w: %s", ErrTeammateAlreadyInTournament, mate.Username)
			}
		}

		team = newTeam(user.ID, mates)
	}

	tournament.Subscribers = append(tournament.Subscribers, user.ID)
	if team != nil {
		tournament.Teams = append(tournament.Teams, *team)
	}
	tournament.UpdatedAt = time.Now().UTC()

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, s.mapTournamentError(err, tournamentID)
	}
	if err := s.userRepo.AddTournament(ctx, user.ID, tournament.ID); err != nil {
		return nil, fmt.Errorf("failed to add tournament %s to user %s: %w", tournament.ID, user.ID, err)
	}

	s.logger.InfoContext(ctx, "user joined tournament",
		slog.String("tournament_id", tournament.ID),
		slog.String("user_id", user.ID),
		slog.Int("teammates", len(mates)))

	s.publisher.Publish(relay.EventSubscriptions, relay.SubscriptionEvent{
		Action:       relay.ActionJoin,
		TournamentID: tournament.ID,
		UserID:       user.ID,
	})
	for _, mate := range mates {
		s.publisher.Publish(relay.EventNotification, relay.NotificationEvent{
			Kind:         relay.KindTeamInvite,
			UserID:       mate.ID,
			TournamentID: tournament.ID,
			CaptainID:    user.ID,
		})
	}
	return tournament, nil
}

func (s *subscriptionService) Leave(ctx context.Context, tournamentID, userID string) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !tournament.IsSubscriber(userID) {
		return nil, ErrNotSubscribed
	}

	tournament.Subscribers = removeString(tournament.Subscribers, userID)

	// Распускаем команды, где пользователь капитан. Профили тиммейтов не трогаем.
	teams := tournament.Teams[:0]
	for _, team := range tournament.Teams {
		if team.CaptainID != userID {
			teams = append(teams, team)
		}
	}
	tournament.Teams = teams
	tournament.UpdatedAt = time.Now().UTC()

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, s.mapTournamentError(err, tournamentID)
	}
	if err := s.userRepo.RemoveTournament(ctx, userID, tournament.ID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "leaving user has no profile", slog.String("user_id", userID))
		} else {
			return nil, fmt.Errorf("failed to remove tournament %s from user %s: %w", tournament.ID, userID, err)
		}
	}

	s.logger.InfoContext(ctx, "user left tournament",
		slog.String("tournament_id", tournament.ID),
		slog.String("user_id", userID))

	s.publisher.Publish(relay.EventSubscriptions, relay.SubscriptionEvent{
		Action:       relay.ActionLeave,
		TournamentID: tournament.ID,
		UserID:       userID,
	})
	return tournament, nil
}

func (s *subscriptionService) RespondToInvitation(ctx context.Context, tournamentID, userID string, accept bool) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range tournament.Teams {
		for j := range tournament.Teams[i].Members {
			member := &tournament.Teams[i].Members[j]
			if member.UserID != userID || !member.Status.Active() {
				continue
			}
			switch {
			case accept && member.Status == models.MemberInvited:
				member.Status = models.MemberAccepted
			case !accept:
				member.Status = models.MemberRejected
			}
			found = true
		}
	}
	if !found {
		return nil, ErrInvitationNotFound
	}
	tournament.UpdatedAt = time.Now().UTC()

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, s.mapTournamentError(err, tournamentID)
	}

	action := relay.ActionDecline
	if accept {
		action = relay.ActionAccept
	}
	s.publisher.Publish(relay.EventSubscriptions, relay.SubscriptionEvent{
		Action:       action,
		TournamentID: tournament.ID,
		UserID:       userID,
	})
	return tournament, nil
}

func (s *subscriptionService) getTournament(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapTournamentError(err, id)
	}
	return tournament, nil
}

func (s *subscriptionService) mapTournamentError(err error, id string) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return fmt.Errorf("failed to access tournament %s: %w", id, err)
}

func (s *subscriptionService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

func (s *subscriptionService) resolveTeammates(ctx context.Context, names []string) ([]*models.User, error) {
	mates := make([]*models.User, 0, len(names))
	for _, name := range names {
		mate, err := s.userRepo.GetByUsername(ctx, name)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownTeammate, name)
			}
			return nil, fmt.Errorf("failed to resolve teammate %q: %w", name, err)
		}
		mates = append(mates, mate)
	}
	return mates, nil
}

// cleanTeammateNames убирает пробелы по краям и пустые имена.
func cleanTeammateNames(names []string) []string {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	return cleaned
}

func checkDistinctTeammates(names []string, captain *models.User) error {
	seen := make(map[string]struct{}, len(names)+2)
	seen[repositories.NormalizeKey(captain.Username)] = struct{}{}
	if captain.Nickname != "" {
		seen[repositories.NormalizeKey(captain.Nickname)] = struct{}{}
	}
	for _, name := range names {
		key := repositories.NormalizeKey(name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateOrSelfTeammate, name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func newTeam(captainID string, mates []*models.User) *models.Team {
	team := &models.Team{
		CaptainID: captainID,
		Members:   make([]models.TeamMember, 0, len(mates)),
		CreatedAt: time.Now().UTC(),
	}
	for _, mate := range mates {
		team.Members = append(team.Members, models.TeamMember{
			UserID:   mate.ID,
			Username: mate.Username,
			Nickname: mate.Nickname,
			Status:   models.MemberInvited,
		})
	}
	return team
}
