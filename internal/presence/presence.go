// Package presence publishes what each user is currently listening to.
package presence

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Channel receives activity updates from players.
type Channel interface {
	UpdateActivity(ctx context.Context, userID, activity string) error
}

// LogChannel writes activity updates to a logger.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel returns a channel that logs each update at info level.
func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

// UpdateActivity logs the update.
func (c *LogChannel) UpdateActivity(ctx context.Context, userID, activity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.Info().Str("user_id", userID).Str("activity", activity).Msg("activity updated")
	return nil
}

// Memory keeps the latest activity per user.
type Memory struct {
	mu       sync.RWMutex
	activity map[string]string
}

// NewMemory returns an empty in-memory channel.
func NewMemory() *Memory {
	return &Memory{activity: make(map[string]string)}
}

// UpdateActivity records the update.
func (m *Memory) UpdateActivity(ctx context.Context, userID, activity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity[userID] = activity
	return nil
}

// Activity returns the last recorded activity for userID.
func (m *Memory) Activity(userID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	activity, ok := m.activity[userID]
	return activity, ok
}
