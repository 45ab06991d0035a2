package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func setLastPromptAt(t *testing.T, s *Store, chatID int64, at time.Time) {
	t.Helper()
	_, err := s.DB().Exec(`UPDATE users SET last_prompt_at = ? WHERE chat_id = ?`,
		at.UTC().Format(time.RFC3339), chatID)
	if err != nil {
		t.Fatalf("setLastPromptAt: %v", err)
	}
}

func TestUpsertUser_CreatesWithDefaults(t *testing.T) {
	s := openTestStore(t)

	u, err := s.UpsertUser(100, "ana")
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if u.ChatID != 100 || u.Username != "ana" {
		t.Errorf("user = %+v, want chat_id 100 username ana", u)
	}
	if u.PreferredHour != 8 {
		t.Errorf("PreferredHour = %d, want default 8", u.PreferredHour)
	}
	if u.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", u.Timezone)
	}
	if u.Difficulty != DifficultyIntermediate {
		t.Errorf("Difficulty = %q, want intermediate", u.Difficulty)
	}
	if !u.IsSubscribed {
		t.Error("IsSubscribed = false, want true")
	}
	if !u.LastPromptAt.IsZero() {
		t.Errorf("LastPromptAt = %v, want zero", u.LastPromptAt)
	}
}

func TestUpsertUser_ConflictKeepsSettings(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.UpsertUser(100, "ana"); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	hour := 19
	diff := DifficultyAdvanced
	if _, err := s.UpdateSettings(100, Settings{PreferredHour: &hour, Difficulty: &diff}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	u, err := s.UpsertUser(100, "ana_renamed")
	if err != nil {
		t.Fatalf("UpsertUser again: %v", err)
	}
	if u.Username != "ana_renamed" {
		t.Errorf("Username = %q, want ana_renamed", u.Username)
	}
	if u.PreferredHour != 19 || u.Difficulty != DifficultyAdvanced {
		t.Errorf("settings were reset: hour=%d difficulty=%q", u.PreferredHour, u.Difficulty)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetUser(42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser error = %v, want ErrNotFound", err)
	}
}

func TestUpdateSettings_Partial(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.UpsertUser(7, "leo"); err != nil {
		t.Fatal(err)
	}

	tz := "Europe/Madrid"
	u, err := s.UpdateSettings(7, Settings{Timezone: &tz})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if u.Timezone != "Europe/Madrid" {
		t.Errorf("Timezone = %q, want Europe/Madrid", u.Timezone)
	}
	if u.PreferredHour != 8 || u.Difficulty != DifficultyIntermediate {
		t.Errorf("unrelated fields changed: %+v", u)
	}

	// No fields set: returns current row unchanged.
	u2, err := s.UpdateSettings(7, Settings{})
	if err != nil {
		t.Fatalf("UpdateSettings empty: %v", err)
	}
	if u2.Timezone != "Europe/Madrid" {
		t.Errorf("empty update changed timezone to %q", u2.Timezone)
	}
}

func TestUpdateSettings_InvalidDifficulty(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.UpsertUser(7, "leo"); err != nil {
		t.Fatal(err)
	}

	bad := Difficulty("expert")
	if _, err := s.UpdateSettings(7, Settings{Difficulty: &bad}); err == nil {
		t.Error("expected error for invalid difficulty")
	}
}

func TestUpdateLastPrompt(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.UpsertUser(9, "mia"); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateLastPrompt(9, "Order a coffee in Madrid."); err != nil {
		t.Fatalf("UpdateLastPrompt: %v", err)
	}

	u, err := s.GetUser(9)
	if err != nil {
		t.Fatal(err)
	}
	if u.LastPrompt != "Order a coffee in Madrid." {
		t.Errorf("LastPrompt = %q", u.LastPrompt)
	}
	if u.LastPromptAt.IsZero() {
		t.Error("LastPromptAt not stamped")
	}

	if err := s.UpdateLastPrompt(404, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateLastPrompt unknown user = %v, want ErrNotFound", err)
	}
}

func TestUsersDueForHour(t *testing.T) {
	s := openTestStore(t)
	hour := 8

	mustUser := func(chatID int64, preferredHour int) {
		t.Helper()
		if _, err := s.UpsertUser(chatID, "u"); err != nil {
			t.Fatal(err)
		}
		if _, err := s.UpdateSettings(chatID, Settings{PreferredHour: &preferredHour}); err != nil {
			t.Fatal(err)
		}
	}

	mustUser(1, hour) // never prompted: due
	mustUser(2, hour) // prompted yesterday: due
	setLastPromptAt(t, s, 2, time.Now().UTC().Add(-24*time.Hour))
	mustUser(3, hour) // prompted today: not due
	setLastPromptAt(t, s, 3, time.Now().UTC())
	mustUser(4, hour+1) // wrong hour: not due
	mustUser(5, hour)   // unsubscribed: not due
	if _, err := s.DB().Exec(`UPDATE users SET is_subscribed = 0 WHERE chat_id = 5`); err != nil {
		t.Fatal(err)
	}

	due, err := s.UsersDueForHour(hour)
	if err != nil {
		t.Fatalf("UsersDueForHour: %v", err)
	}

	got := map[int64]bool{}
	for _, u := range due {
		got[u.ChatID] = true
	}
	want := map[int64]bool{1: true, 2: true}
	if len(got) != len(want) || !got[1] || !got[2] {
		t.Errorf("due users = %v, want {1, 2}", got)
	}
}

func TestUsersDueForHour_IgnoresUnrelatedFields(t *testing.T) {
	s := openTestStore(t)
	hour := 14

	if _, err := s.UpsertUser(1, "pepa"); err != nil {
		t.Fatal(err)
	}
	tz := "America/Bogota"
	diff := DifficultyBeginner
	if _, err := s.UpdateSettings(1, Settings{PreferredHour: &hour, Timezone: &tz, Difficulty: &diff}); err != nil {
		t.Fatal(err)
	}

	due, err := s.UsersDueForHour(hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ChatID != 1 {
		t.Errorf("due = %+v, want exactly user 1 regardless of timezone/difficulty", due)
	}
}

func TestSessions(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.UpsertUser(3, "rio"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		sess := Session{
			ID:            uuid.New().String(),
			ChatID:        3,
			Prompt:        "Describe your hometown",
			Transcription: "Mi ciudad es pequeña",
			MistakeCount:  i,
			CreatedAt:     time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveSession(sess); err != nil {
			t.Fatalf("SaveSession %d: %v", i, err)
		}
	}

	recent, err := s.RecentSessions(3, 2)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d sessions, want 2", len(recent))
	}
	if recent[0].MistakeCount != 2 {
		t.Errorf("newest session MistakeCount = %d, want 2", recent[0].MistakeCount)
	}

	n, err := s.CountSessions()
	if err != nil {
		t.Fatalf("CountSessions: %v", err)
	}
	if n != 3 {
		t.Errorf("CountSessions = %d, want 3", n)
	}
}
