package models

import "time"

// UserRole задаёт уровень доступа пользователя.
type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleHelper    UserRole = "helper"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

var roleRank = map[UserRole]int{
	RoleUser:      0,
	RoleHelper:    1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants at least the access of min.
func (r UserRole) AtLeast(min UserRole) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[min]
}

// IsStaff: helper и выше.
func (r UserRole) IsStaff() bool {
	return r.AtLeast(RoleHelper)
}

// User is a registered user bound to an external OAuth account.
type User struct {
	ID          string            `json:"id" bson:"_id" db:"id"`
	ExternalID  string            `json:"-" bson:"external_id" db:"external_id"`
	Username    string            `json:"username" bson:"username" db:"username"`
	UsernameKey string            `json:"-" bson:"username_key" db:"username_key"`
	AvatarURL   string            `json:"avatar_url,omitempty" bson:"avatar_url,omitempty" db:"avatar_url"`
	Role        UserRole          `json:"role" bson:"role" db:"role"`
	Nickname    string            `json:"nickname,omitempty" bson:"nickname,omitempty" db:"nickname"`
	SocialLinks map[string]string `json:"social_links,omitempty" bson:"social_links,omitempty" db:"social_links"`
	Skills      []string          `json:"skills,omitempty" bson:"skills,omitempty" db:"skills"`
	Tournaments []string          `json:"tournaments" bson:"tournaments" db:"tournaments"`
	CreatedAt   time.Time         `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" bson:"updated_at" db:"updated_at"`
}

// HasNickname reports whether the user registered an in-game nickname.
func (u *User) HasNickname() bool {
	return u != nil && u.Nickname != ""
}

// HasTournament reports whether tournamentID is in the membership list.
func (u *User) HasTournament(tournamentID string) bool {
	for _, id := range u.Tournaments {
		if id == tournamentID {
			return true
		}
	}
	return false
}

// PublicUser is what other users see in lists and cards.
type PublicUser struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	Nickname  string   `json:"nickname,omitempty"`
	Role      UserRole `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Nickname:  u.Nickname,
		Role:      u.Role,
	}
}

// ExternalIdentity is what the OAuth provider reports after a successful login.
type ExternalIdentity struct {
	ExternalID string
	Username   string
	AvatarURL  string
}
