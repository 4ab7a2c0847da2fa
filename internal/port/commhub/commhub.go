// Package commhub defines the communication hub port: named channels of
// append-only messages shared by agents and people.
package commhub

import (
	"context"
	"time"
)

// FeedChannel is the shared channel completion summaries are broadcast to.
const FeedChannel = "feed"

// Message is one entry in a channel's append-only log.
type Message struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Hub is the port interface for channel messaging. Implementations persist
// messages as newline-delimited JSON logs.
type Hub interface {
	CreateChannel(ctx context.Context, name string) error
	SendMessage(ctx context.Context, channel, sender, body string) (*Message, error)
	GetMessages(ctx context.Context, channel string, limit int) ([]Message, error)
	ListChannels(ctx context.Context) ([]string, error)
}
