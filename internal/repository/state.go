package repository

import (
	"context"
	"time"
)

// StateRepository holds fast-changing runtime state, implemented on Redis.
// Nothing in here is a source of truth for data that must survive a restart;
// that belongs in the relational repositories.
type StateRepository interface {
	// === Event id sequencing ===

	// NextEventID atomically allocates the next id of a per-world series
	// ("chat", "question"). IDs are strictly increasing within one series of
	// one world.
	NextEventID(ctx context.Context, worldID, series string) (uint64, error)

	// SeedEventID raises the sequencer of a series to at least value. Used
	// to self-heal after the counter was lost.
	SeedEventID(ctx context.Context, worldID, series string, value uint64) error

	// === Connection registry ===

	// RegisterConnection counts a live connection under a version label
	// ("commit.environment"). Returns nothing useful beyond the error.
	RegisterConnection(ctx context.Context, label string) error

	// UnregisterConnection removes a live connection from a label.
	UnregisterConnection(ctx context.Context, label string) error

	// ConnectionCounts returns the estimated number of live connections per
	// label across all server processes.
	ConnectionCounts(ctx context.Context) (map[string]int64, error)

	// === Subscription tracking ===

	// TrackSubscription records that a socket of a user subscribed to a
	// channel.
	TrackSubscription(ctx context.Context, channelID, userID, socketID string) error

	// TrackUnsubscription removes the socket and returns how many sockets of
	// that user remain subscribed. A zero return on a volatile membership
	// triggers the membership cleanup.
	TrackUnsubscription(ctx context.Context, channelID, userID, socketID string) (int64, error)

	// SubscriberCount returns how many sockets of a user are subscribed to a
	// channel, across processes.
	SubscriberCount(ctx context.Context, channelID, userID string) (int64, error)

	// === Read pointers ===

	// SetReadPointer stores the highest event id a user has read per channel.
	SetReadPointer(ctx context.Context, userID, channelID string, eventID uint64) error

	// ReadPointers returns all read pointers of a user keyed by channel id.
	ReadPointers(ctx context.Context, userID string) (map[string]uint64, error)

	// === Rate limiting ===

	// CheckRateLimit increments the counter behind key and reports whether
	// the limit is now exceeded within the window.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
