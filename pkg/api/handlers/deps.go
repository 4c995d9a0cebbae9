package handlers

import (
	"time"

	"chatforum/pkg/chat"
	"chatforum/pkg/digest"
	"chatforum/pkg/onboard"
)

// Deps carries the wired services the handlers operate on. Handlers hold
// no state of their own.
type Deps struct {
	Builder *digest.Builder
	Backend chat.Backend
	Onboard *onboard.Service

	ChannelType  string
	Topics       []string
	MessageLimit int

	SnapshotTTL time.Duration
	SnapshotMax uint64
}
