package models

import "time"

const MemoryDescriptionMaxLen = 200

// Memory is a user-submitted video card.
type Memory struct {
	ID          string    `json:"id" bson:"_id" db:"id"`
	Title       string    `json:"title" bson:"title" db:"title"`
	VideoURL    string    `json:"video_url" bson:"video_url" db:"video_url"`
	Description string    `json:"description,omitempty" bson:"description,omitempty" db:"description"`
	AuthorID    string    `json:"author_id" bson:"author_id" db:"author_id"`
	Likes       []string  `json:"-" bson:"likes" db:"likes"`
	LikeCount   int       `json:"like_count" bson:"-" db:"-"`
	Liked       bool      `json:"liked" bson:"-" db:"-"`
	Shares      int64     `json:"shares" bson:"shares" db:"shares"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" db:"created_at"`

	Author *PublicUser `json:"author,omitempty" bson:"-" db:"-"`
}

// LikedBy reports whether userID is in the like set.
func (m *Memory) LikedBy(userID string) bool {
	for _, id := range m.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Prepare заполняет вычисляемые поля для конкретного зрителя.
func (m *Memory) Prepare(viewerID string) {
	m.LikeCount = len(m.Likes)
	m.Liked = viewerID != "" && m.LikedBy(viewerID)
}
