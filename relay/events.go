package relay

import "time"

// Действия, передаваемые в поле action.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionJoin    = "join"
	ActionLeave   = "leave"
	ActionAccept  = "accept"
	ActionDecline = "decline"
	ActionLike    = "like"
	ActionShare   = "share"
	ActionStatus  = "status"

	KindTeamInvite = "team_invite"
)

type TournamentEvent struct {
	Action       string     `json:"action"`
	TournamentID string     `json:"tournament_id"`
	Title        string     `json:"title,omitempty"`
	Slug         string     `json:"slug,omitempty"`
	Status       string     `json:"status,omitempty"`
	StartsAt     *time.Time `json:"starts_at,omitempty"`
}

type SubscriptionEvent struct {
	Action       string `json:"action"`
	TournamentID string `json:"tournament_id"`
	UserID       string `json:"user_id"`
}

type MemoryEvent struct {
	Action   string `json:"action"`
	MemoryID string `json:"memory_id"`
	Likes    *int   `json:"likes,omitempty"`
	Shares   *int64 `json:"shares,omitempty"`
}

type NotificationEvent struct {
	Kind         string `json:"kind"`
	UserID       string `json:"user_id"`
	TournamentID string `json:"tournament_id"`
	CaptainID    string `json:"captain_id"`
}

type UserEvent struct {
	Action string `json:"action"`
	UserID string `json:"user_id"`
}

type LeaderboardEvent struct {
	Username string `json:"username"`
}
