// Package models defines transport-neutral message structures exchanged with the
// messenger platform.
package models

// Update is an inbound event from the chat transport: either a typed text message
// or a button callback. Callback payloads carry the button label verbatim, so the
// dialog engine treats both uniformly.
type Update struct {
	UserID   int64
	UserName string
	Text     string
	Callback bool
	Time     int64
}

// Button is one inline keyboard button. Label and Payload are identical for
// suggestion buttons: pressing the button re-submits the label text.
type Button struct {
	Label   string
	Payload string
}

// Message is an outbound transport message with an optional inline keyboard.
type Message struct {
	Text     string
	Markdown bool
	Keyboard [][]Button
}
