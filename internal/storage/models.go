package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Difficulty is a user's self-selected proficiency level.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ValidDifficulty reports whether d is one of the known levels.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// User is one registered chat. LastPromptAt is the zero time when the
// user has never been sent a practice prompt.
type User struct {
	ChatID        int64
	Username      string
	PreferredHour int
	Timezone      string
	Difficulty    Difficulty
	IsSubscribed  bool
	LastPrompt    string
	LastPromptAt  time.Time
	CreatedAt     time.Time
}

// Settings carries a partial update of user preferences. Nil fields are
// left unchanged.
type Settings struct {
	PreferredHour *int
	Timezone      *string
	Difficulty    *Difficulty
}

// Session is one completed voice analysis, kept as practice history.
type Session struct {
	ID            string
	ChatID        int64
	Prompt        string
	Transcription string
	MistakeCount  int
	CreatedAt     time.Time
}
