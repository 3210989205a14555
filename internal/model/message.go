package model

// Update is one inbound text event from the chat transport.
type Update struct {
	// ID is a correlation id assigned on receipt.
	ID       string `json:"id"`
	UpdateID int    `json:"update_id"`
	Identity string `json:"identity"`
	ChatID   int64  `json:"chat_id"`
	Text     string `json:"text"`
}

// Keyboard is a set of reply suggestions, one slice per row.
// A nil Keyboard leaves the client keyboard unchanged.
type Keyboard [][]string
