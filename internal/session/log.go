// Package session holds per-session conversation logs.
package session

import "github.com/RichardoC/chat-relay/internal/models"

// DefaultMaxSize is the number of messages a log keeps when no size is configured.
const DefaultMaxSize = 20

// Log is an ordered, bounded conversation log. Appending past the cap drops
// the oldest messages. A Log is not safe for concurrent use; callers hold
// the owning Session's lock.
type Log struct {
	messages []models.Message
	max      int
}

func NewLog(size int) *Log {
	if size <= 0 {
		size = DefaultMaxSize
	}
	return &Log{max: size}
}

// Append adds msg to the end of the log and trims from the front so that at
// most Max messages remain.
func (l *Log) Append(msg models.Message) {
	l.messages = append(l.messages, msg)
	l.trim()
}

// Messages returns a copy of the log, oldest first.
func (l *Log) Messages() []models.Message {
	out := make([]models.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Replace swaps the contents of the log for msgs, keeping only the most
// recent Max of them.
func (l *Log) Replace(msgs []models.Message) {
	l.messages = make([]models.Message, len(msgs))
	copy(l.messages, msgs)
	l.trim()
}

func (l *Log) Clear() {
	l.messages = nil
}

func (l *Log) Len() int { return len(l.messages) }

func (l *Log) Max() int { return l.max }

func (l *Log) trim() {
	if over := len(l.messages) - l.max; over > 0 {
		// Copy into a fresh slice so the evicted prefix can be collected.
		kept := make([]models.Message, l.max)
		copy(kept, l.messages[over:])
		l.messages = kept
	}
}
