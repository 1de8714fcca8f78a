package room

import "time"

// Member is a room member as announced by the relay.
type Member struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// ChatMessage is one entry of the chat log. Entries are never mutated after creation.
type ChatMessage struct {
	Text       string    `json:"text"`
	SenderName string    `json:"senderName"`
	Timestamp  time.Time `json:"timestamp"`
	IsMine     bool      `json:"-"`
}
