package models

import "time"

// TournamentStatus: вступать можно только в открытый турнир.
type TournamentStatus string

const (
	StatusOpen       TournamentStatus = "open"
	StatusInProgress TournamentStatus = "in_progress"
	StatusConcluded  TournamentStatus = "concluded"
	StatusPaused     TournamentStatus = "paused"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusConcluded, StatusPaused:
		return true
	}
	return false
}

// TournamentFormat определяет, вступают ли участники поодиночке или командами.
type TournamentFormat string

const (
	FormatSolo TournamentFormat = "solo"
	FormatDuo  TournamentFormat = "duo"
	FormatTrio TournamentFormat = "trio"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatSolo, FormatDuo, FormatTrio:
		return true
	}
	return false
}

// IsTeam reports whether subscribers join as captained teams.
func (f TournamentFormat) IsTeam() bool {
	return f == FormatDuo || f == FormatTrio
}

// TeammateCount is the exact number of teammates a captain must name.
func (f TournamentFormat) TeammateCount() int {
	switch f {
	case FormatDuo:
		return 1
	case FormatTrio:
		return 2
	}
	return 0
}

// MemberStatus is the status of a team slot.
type MemberStatus string

const (
	MemberInvited  MemberStatus = "invited"
	MemberAccepted MemberStatus = "accepted"
	MemberRejected MemberStatus = "rejected"
)

// Active reports whether the slot still binds the user to the team.
func (s MemberStatus) Active() bool {
	return s == MemberInvited || s == MemberAccepted
}

type TeamMember struct {
	UserID   string       `json:"user_id" bson:"user_id"`
	Username string       `json:"username" bson:"username"`
	Nickname string       `json:"nickname" bson:"nickname"`
	Status   MemberStatus `json:"status" bson:"status"`
}

type Team struct {
	CaptainID string       `json:"captain_id" bson:"captain_id"`
	Members   []TeamMember `json:"members" bson:"members"`
	CreatedAt time.Time    `json:"created_at" bson:"created_at"`
}

// Tournament хранится одним документом вместе с подписчиками и командами.
type Tournament struct {
	ID          string           `json:"id" bson:"_id" db:"id"`
	Slug        string           `json:"slug" bson:"slug" db:"slug"`
	Title       string           `json:"title" bson:"title" db:"title"`
	StartsAt    time.Time        `json:"starts_at" bson:"starts_at" db:"starts_at"`
	Prize       string           `json:"prize,omitempty" bson:"prize,omitempty" db:"prize"`
	Description string           `json:"description,omitempty" bson:"description,omitempty" db:"description"`
	Format      TournamentFormat `json:"format" bson:"format" db:"format"`
	Status      TournamentStatus `json:"status" bson:"status" db:"status"`
	Subscribers []string         `json:"subscribers" bson:"subscribers" db:"subscribers"`
	Teams       []Team           `json:"teams" bson:"teams" db:"teams"`
	CreatedAt   time.Time        `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" bson:"updated_at" db:"updated_at"`
	ImageKey    *string          `json:"-" bson:"image_key,omitempty" db:"image_key"`
	ImageURL    *string          `json:"image_url,omitempty" bson:"-" db:"-"`
}

// IsSubscriber reports whether userID is in the subscriber list.
func (t *Tournament) IsSubscriber(userID string) bool {
	for _, id := range t.Subscribers {
		if id == userID {
			return true
		}
	}
	return false
}

// IsCaptain reports whether userID captains one of the teams.
func (t *Tournament) IsCaptain(userID string) bool {
	for _, team := range t.Teams {
		if team.CaptainID == userID {
			return true
		}
	}
	return false
}

// HasActiveTeammate reports whether userID holds an invited or accepted slot in any team.
func (t *Tournament) HasActiveTeammate(userID string) bool {
	for _, team := range t.Teams {
		for _, m := range team.Members {
			if m.UserID == userID && m.Status.Active() {
				return true
			}
		}
	}
	return false
}

// Enrolled reports whether userID is a subscriber, a captain or an active teammate.
func (t *Tournament) Enrolled(userID string) bool {
	return t.IsSubscriber(userID) || t.IsCaptain(userID) || t.HasActiveTeammate(userID)
}

// TournamentView добавляет к турниру профили участников.
type TournamentView struct {
	Tournament
	SubscriberProfiles []PublicUser `json:"subscriber_profiles"`
	TeamViews          []TeamView   `json:"team_views,omitempty"`
}

type TeamView struct {
	Captain PublicUser       `json:"captain"`
	Members []TeamMemberView `json:"members"`
}

type TeamMemberView struct {
	PublicUser
	Status MemberStatus `json:"status"`
}
