// Package pipeline runs the voice-analysis sequence for one submission:
// fetch audio, transcribe, analyze, render feedback. Runs are detached
// from the triggering request and isolated from each other.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avetisov/charla/internal/ai"
	"github.com/avetisov/charla/internal/storage"
)

const (
	msgTranscribing = "📝 Transcribing your Spanish..."
	msgAnalyzing    = "🤔 Analyzing your response..."
	msgEmptySpeech  = "I couldn't hear any speech in that recording. Please try again and speak clearly."
	msgFailure      = "Sorry, I had trouble processing your voice message. Please try again."
)

// Submission is one inbound voice message to analyze. ID is stable across
// transport retries and is what the deduplication guard tracks.
type Submission struct {
	ID     string
	ChatID int64
	FileID string
	Prompt string
	Level  storage.Difficulty
}

// AudioResolver resolves and downloads the audio payload of a submission.
type AudioResolver interface {
	DownloadVoice(ctx context.Context, fileID string) (string, error)
}

// Transcriber converts downloaded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Analyzer produces structured feedback for a transcribed response.
type Analyzer interface {
	Analyze(ctx context.Context, prompt, transcript string, level storage.Difficulty) (*ai.Analysis, error)
}

// Sender delivers messages back to the user.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

// Releaser schedules expiry of a claimed submission identifier.
type Releaser interface {
	Release(id string)
}

// SessionStore records completed analyses as practice history.
type SessionStore interface {
	SaveSession(sess storage.Session) error
}

// Pipeline executes analysis runs. Construct once and Spawn per submission.
type Pipeline struct {
	resolver    AudioResolver
	transcriber Transcriber
	analyzer    Analyzer
	sender      Sender
	guard       Releaser
	sessions    SessionStore
	logger      *slog.Logger

	wg sync.WaitGroup
}

// New creates a Pipeline with the given collaborators. sessions may be
// nil, in which case history recording is skipped.
func New(resolver AudioResolver, transcriber Transcriber, analyzer Analyzer, sender Sender, guard Releaser, sessions SessionStore) *Pipeline {
	return &Pipeline{
		resolver:    resolver,
		transcriber: transcriber,
		analyzer:    analyzer,
		sender:      sender,
		guard:       guard,
		sessions:    sessions,
		logger:      slog.Default(),
	}
}

// Spawn starts a detached run for sub and returns immediately. The run
// has its own error boundary: a panic is logged, never propagated, and
// the guard release still happens.
func (p *Pipeline) Spawn(sub Submission) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.guard.Release(sub.ID)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("pipeline run panicked", "submission", sub.ID, "panic", r)
			}
		}()
		p.run(context.Background(), sub)
	}()
}

// Wait blocks until all spawned runs have finished. Used by shutdown and tests.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// run executes the four stages strictly in sequence. Any stage failure
// sends one friendly message and ends the run; there are no retries.
func (p *Pipeline) run(ctx context.Context, sub Submission) {
	path, err := p.resolver.DownloadVoice(ctx, sub.FileID)
	if err != nil {
		p.logger.Error("fetching audio failed", "submission", sub.ID, "chat_id", sub.ChatID, "error", err)
		p.sendFailure(ctx, sub.ChatID)
		return
	}
	defer os.Remove(path)

	p.notify(ctx, sub.ChatID, msgTranscribing)

	transcript, err := p.transcriber.Transcribe(ctx, path)
	if err != nil {
		p.logger.Error("transcription failed", "submission", sub.ID, "chat_id", sub.ChatID, "error", err)
		p.sendFailure(ctx, sub.ChatID)
		return
	}
	if strings.TrimSpace(transcript) == "" {
		// Silence is a distinct outcome, not an error.
		if err := p.sender.SendMessage(ctx, sub.ChatID, msgEmptySpeech); err != nil {
			p.logger.Error("sending empty-speech reply failed", "chat_id", sub.ChatID, "error", err)
		}
		return
	}

	p.notify(ctx, sub.ChatID, msgAnalyzing)

	analysis, err := p.analyzer.Analyze(ctx, sub.Prompt, transcript, sub.Level)
	if err != nil {
		p.logger.Error("analysis failed", "submission", sub.ID, "chat_id", sub.ChatID, "error", err)
		p.sendFailure(ctx, sub.ChatID)
		return
	}

	if p.sessions != nil {
		sess := storage.Session{
			ID:            uuid.New().String(),
			ChatID:        sub.ChatID,
			Prompt:        sub.Prompt,
			Transcription: analysis.Transcription,
			MistakeCount:  len(analysis.Mistakes),
			CreatedAt:     time.Now().UTC(),
		}
		if err := p.sessions.SaveSession(sess); err != nil {
			p.logger.Error("recording session failed", "chat_id", sub.ChatID, "error", err)
		}
	}

	if err := p.sender.SendMarkdown(ctx, sub.ChatID, RenderAnalysis(analysis)); err != nil {
		p.logger.Error("delivering feedback failed", "submission", sub.ID, "chat_id", sub.ChatID, "error", err)
	}
}

// notify sends a best-effort progress update between stages.
func (p *Pipeline) notify(ctx context.Context, chatID int64, text string) {
	if err := p.sender.SendMessage(ctx, chatID, text); err != nil {
		p.logger.Debug("progress update failed", "chat_id", chatID, "error", err)
	}
}

func (p *Pipeline) sendFailure(ctx context.Context, chatID int64) {
	if err := p.sender.SendMessage(ctx, chatID, msgFailure); err != nil {
		p.logger.Error("sending failure reply failed", "chat_id", chatID, "error", err)
	}
}
