package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/repositories"
	"golang.org/x/sync/errgroup"
)

const staffLookupConcurrency = 8

// StaffRosterEntry is one line of the configured staff roster.
type StaffRosterEntry struct {
	Username string
	Title    string
}

type StaffService interface {
	Roster(ctx context.Context) ([]models.StaffMember, error)
}

type staffService struct {
	roster   []StaffRosterEntry
	userRepo repositories.UserRepository
}

func NewStaffService(roster []StaffRosterEntry, userRepo repositories.UserRepository) StaffService {
	return &staffService{roster: roster, userRepo: userRepo}
}

// Roster сопоставляет список состава с живыми записями пользователей. Порядок сохраняется.
func (s *staffService) Roster(ctx context.Context) ([]models.StaffMember, error) {
	members := make([]models.StaffMember, len(s.roster))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(staffLookupConcurrency)
	for i, entry := range s.roster {
		g.Go(func() error {
			member := models.StaffMember{Username: entry.Username, Title: entry.Title}
			user, err := s.userRepo.GetByUsername(gctx, entry.Username)
			switch {
			case err == nil:
				public := user.Public()
				member.Registered = true
				member.User = &public
			case !errors.Is(err, repositories.ErrUserNotFound):
				return fmt.Errorf("failed to look up staff member %s: %w", entry.Username, err)
			}
			members[i] = member
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return members, nil
}
