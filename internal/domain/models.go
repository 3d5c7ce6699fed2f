package domain

import "time"

// SessionKey is the fixed key of the single session slot.
const SessionKey = "current"

// User represents an application user.
type User struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	// Password is stored and compared as plain text. This mirrors the
	// documented credential model and is a known defect; do not rely on it
	// outside a local, single-user store.
	Password  string    `json:"-"`
	Email     *string   `json:"email,omitempty"`
	PhotoURL  string    `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Chat is a thread between exactly two users. At most one chat exists per
// unordered pair of participants.
type Chat struct {
	ID              int64      `json:"id"`
	Participants    [2]int64   `json:"participants"`
	CreatedAt       time.Time  `json:"created_at"`
	LastMessage     *string    `json:"last_message"`
	LastMessageTime *time.Time `json:"last_message_time"`
}

// Has reports whether userID is one of the chat's participants.
func (c *Chat) Has(userID int64) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Peer returns the participant other than userID. If userID is not a
// participant the first participant is returned.
func (c *Chat) Peer(userID int64) int64 {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// Message is a single chat message. Messages are never edited or deleted;
// the only mutation is flipping Read from false to true.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	// Delivered defaults to true: there is no transport between sender and
	// store, so a stored message is a delivered message.
	Delivered bool `json:"delivered"`
}

// Session is the single-slot record identifying the currently authenticated
// user. The embedded User is a snapshot taken at login and may go stale
// relative to the live user row.
type Session struct {
	ID   string `json:"id"`
	User User   `json:"user"`
}
