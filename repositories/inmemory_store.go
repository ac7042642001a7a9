package repositories

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/arena-hub/models"
)

// inMemoryData хранит общее состояние in-memory бэкенда. Наружу отдаются только копии.
type inMemoryData struct {
	mu          sync.RWMutex
	users       map[string]*models.User
	tournaments map[string]*models.Tournament
	memories    map[string]*models.Memory
	leaderboard map[string]*models.LeaderboardEntry
}

func newInMemoryData() *inMemoryData {
	return &inMemoryData{
		users:       make(map[string]*models.User),
		tournaments: make(map[string]*models.Tournament),
		memories:    make(map[string]*models.Memory),
		leaderboard: make(map[string]*models.LeaderboardEntry),
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.SocialLinks = maps.Clone(u.SocialLinks)
	c.Skills = slices.Clone(u.Skills)
	c.Tournaments = slices.Clone(nonNil(u.Tournaments))
	return &c
}

func cloneTournament(t *models.Tournament) *models.Tournament {
	c := *t
	c.Subscribers = slices.Clone(nonNil(t.Subscribers))
	c.Teams = make([]models.Team, len(t.Teams))
	for i, team := range t.Teams {
		team.Members = slices.Clone(team.Members)
		c.Teams[i] = team
	}
	if t.ImageKey != nil {
		key := *t.ImageKey
		c.ImageKey = &key
	}
	c.ImageURL = nil
	return &c
}

func cloneMemory(m *models.Memory) *models.Memory {
	c := *m
	c.Likes = slices.Clone(nonNil(m.Likes))
	c.LikeCount = len(c.Likes)
	c.Liked = false
	c.Author = nil
	return &c
}

// --- users ---

type inMemoryUserRepository struct {
	data *inMemoryData
}

func (r *inMemoryUserRepository) Create(_ context.Context, user *models.User) error {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.users {
		if existing.ID == user.ID || existing.ExternalID == user.ExternalID || existing.UsernameKey == user.UsernameKey {
			return ErrUserConflict
		}
	}
	d.users[user.ID] = cloneUser(user)
	return nil
}

func (r *inMemoryUserRepository) findLocked(match func(*models.User) bool) (*models.User, error) {
	for _, u := range r.data.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *inMemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()

	u, ok := r.data.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *inMemoryUserRepository) GetByExternalID(_ context.Context, externalID string) (*models.User, error) {
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()
	return r.findLocked(func(u *models.User) bool { return u.ExternalID == externalID })
}

func (r *inMemoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	key := NormalizeKey(username)
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()
	return r.findLocked(func(u *models.User) bool { return u.UsernameKey == key })
}

func (r *inMemoryUserRepository) ListByIDs(_ context.Context, ids []string) ([]models.User, error) {
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()

	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.data.users[id]; ok {
			users = append(users, *cloneUser(u))
		}
	}
	return users, nil
}

func (r *inMemoryUserRepository) Search(_ context.Context, query string, limit int) ([]models.User, error) {
	key := NormalizeKey(query)
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()

	users := make([]models.User, 0)
	for _, u := range r.data.users {
		if strings.Contains(u.UsernameKey, key) || strings.Contains(strings.ToLower(u.Nickname), key) {
			users = append(users, *cloneUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UsernameKey < users[j].UsernameKey })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r *inMemoryUserRepository) Update(_ context.Context, user *models.User) error {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	for _, existing := range d.users {
		if existing.ID != user.ID && (existing.ExternalID == user.ExternalID || existing.UsernameKey == user.UsernameKey) {
			return ErrUserConflict
		}
	}
	d.users[user.ID] = cloneUser(user)
	return nil
}

func (r *inMemoryUserRepository) AddTournament(_ context.Context, userID, tournamentID string) error {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if !slices.Contains(u.Tournaments, tournamentID) {
		u.Tournaments = append(u.Tournaments, tournamentID)
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryUserRepository) RemoveTournament(_ context.Context, userID, tournamentID string) error {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Tournaments = slices.DeleteFunc(u.Tournaments, func(id string) bool { return id == tournamentID })
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// --- tournaments ---

type inMemoryTournamentRepository struct {
	data *inMemoryData
}

func (r *inMemoryTournamentRepository) Create(_ context.Context, t *models.Tournament) error {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.tournaments {
		if existing.Slug == t.Slug {
			return ErrTournamentSlugConflict
		}
	}
	d.tournaments[t.ID] = cloneTournament(t)
	return nil
}

func (r *inMemoryTournamentRepository) GetByID(_ context.Context, id string) (*models.Tournament, error) {
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()

	t, ok := r.data.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

func (r *inMemoryTournamentRepository) GetBySlug(_ context.Context, slug string) (*models.Tournament, error) {
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()

	for _, t := range r.data.tournaments {
		if t.Slug == slug {
			return cloneTournament(t), nil
		}
	}
	return nil, ErrTournamentNotFound
}

func (r *inMemoryTournamentRepository) List(_ context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()

	result := make([]models.Tournament, 0, len(r.data.tournaments))
	for _, t := range r.data.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		result = append(result, *cloneTournament(t))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartsAt.Equal(result[j].StartsAt) {
			return result[i].StartsAt.After(result[j].StartsAt)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *inMemoryTournamentRepository) Update(_ context.Context, t *models.Tournament) error {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tournaments[t.ID]; !ok {
		return ErrTournamentNotFound
	}
	d.tournaments[t.ID] = cloneTournament(t)
	return nil
}

func (r *inMemoryTournamentRepository) UpdateStatus(_ context.Context, id string, status models.TournamentStatus) error {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryTournamentRepository) UpdateImageKey(_ context.Context, id string, imageKey *string) error {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	if imageKey == nil {
		t.ImageKey = nil
	} else {
		key := *imageKey
		t.ImageKey = &key
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryTournamentRepository) Delete(_ context.Context, id string) error {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tournaments[id]; !ok {
		return ErrTournamentNotFound
	}
	delete(d.tournaments, id)
	return nil
}

func (r *inMemoryTournamentRepository) ListStartingBefore(_ context.Context, status models.TournamentStatus, before time.Time) ([]models.Tournament, error) {
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()

	result := make([]models.Tournament, 0)
	for _, t := range r.data.tournaments {
		if t.Status == status && !t.StartsAt.After(before) {
			result = append(result, *cloneTournament(t))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartsAt.Before(result[j].StartsAt) })
	return result, nil
}

// --- memories ---

type inMemoryMemoryRepository struct {
	data *inMemoryData
}

func (r *inMemoryMemoryRepository) Create(_ context.Context, m *models.Memory) error {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[m.AuthorID]; !ok {
		return ErrUserNotFound
	}
	d.memories[m.ID] = cloneMemory(m)
	return nil
}

func (r *inMemoryMemoryRepository) GetByID(_ context.Context, id string) (*models.Memory, error) {
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()

	m, ok := r.data.memories[id]
	if !ok {
		return nil, ErrMemoryNotFound
	}
	return cloneMemory(m), nil
}

func (r *inMemoryMemoryRepository) List(_ context.Context, filter ListMemoriesFilter) ([]models.Memory, error) {
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()

	result := make([]models.Memory, 0)
	for _, m := range r.data.memories {
		if filter.AuthorID != "" && m.AuthorID != filter.AuthorID {
			continue
		}
		result = append(result, *cloneMemory(m))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []models.Memory{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *inMemoryMemoryRepository) Delete(_ context.Context, id string) error {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.memories[id]; !ok {
		return ErrMemoryNotFound
	}
	delete(d.memories, id)
	return nil
}

func (r *inMemoryMemoryRepository) SetLike(_ context.Context, id, userID string, liked bool) (*models.Memory, error) {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.memories[id]
	if !ok {
		return nil, ErrMemoryNotFound
	}
	has := slices.Contains(m.Likes, userID)
	switch {
	case liked && !has:
		m.Likes = append(m.Likes, userID)
	case !liked && has:
		m.Likes = slices.DeleteFunc(m.Likes, func(id string) bool { return id == userID })
	}
	return cloneMemory(m), nil
}

func (r *inMemoryMemoryRepository) IncrementShares(_ context.Context, id string) (int64, error) {
	d := r.data
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.memories[id]
	if !ok {
		return 0, ErrMemoryNotFound
	}
	m.Shares++
	return m.Shares, nil
}

// --- leaderboard ---

type inMemoryLeaderboardRepository struct {
	data *inMemoryData
}

func (r *inMemoryLeaderboardRepository) List(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()

	entries := make([]models.LeaderboardEntry, 0, len(r.data.leaderboard))
	for _, e := range r.data.leaderboard {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.UsernameKey < b.UsernameKey
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *inMemoryLeaderboardRepository) GetByUsername(_ context.Context, username string) (*models.LeaderboardEntry, error) {
	r.data.mu.RLock()
	defer r.data.mu.RUnlock()

	e, ok := r.data.leaderboard[NormalizeKey(username)]
	if !ok {
		return nil, ErrLeaderboardEntryNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *inMemoryLeaderboardRepository) Upsert(_ context.Context, e *models.LeaderboardEntry) error {
	e.UsernameKey = NormalizeKey(e.Username)
	r.data.mu.Lock()
	defer r.data.mu.Unlock()

	copied := *e
	r.data.leaderboard[e.UsernameKey] = &copied
	return nil
}
