// Package notify delivers operator alerts.
//
// Telegram posts a message through the Telegram Bot API. Async wraps any
// Sender so that Notify never blocks the relay workers: messages are
// queued on a small buffer and delivered by a single goroutine, and are
// dropped with a warning when the buffer is full.
package notify
