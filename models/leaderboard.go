package models

import "time"

type LeaderboardEntry struct {
	Username    string    `json:"username" bson:"username" db:"username"`
	UsernameKey string    `json:"-" bson:"_id" db:"username_key"`
	Points      int64     `json:"points" bson:"points" db:"points"`
	Wins        int       `json:"wins" bson:"wins" db:"wins"`
	Losses      int       `json:"losses" bson:"losses" db:"losses"`
	Kills       int       `json:"kills" bson:"kills" db:"kills"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`
}

// StaffMember is a roster entry joined with the live user record.
type StaffMember struct {
	Username   string      `json:"username"`
	Title      string      `json:"title"`
	Registered bool        `json:"registered"`
	User       *PublicUser `json:"user,omitempty"`
}
