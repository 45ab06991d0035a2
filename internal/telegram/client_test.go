package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestSendMessage_PostsChatAndText(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-token", srv.URL)
	if err := c.SendMessage(context.Background(), 42, "hola"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("path = %q, want /bottest-token/sendMessage", gotPath)
	}
	if gotBody["chat_id"] != float64(42) || gotBody["text"] != "hola" {
		t.Errorf("body = %v", gotBody)
	}
	if _, ok := gotBody["parse_mode"]; ok {
		t.Error("plain SendMessage should not set parse_mode")
	}
}

func TestSendMarkdown_SetsParseMode(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("t", srv.URL)
	if err := c.SendMarkdown(context.Background(), 1, "**hola**"); err != nil {
		t.Fatalf("SendMarkdown: %v", err)
	}
	if gotBody["parse_mode"] != "Markdown" {
		t.Errorf("parse_mode = %v, want Markdown", gotBody["parse_mode"])
	}
}

func TestCall_APIErrorSurfacesDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"description":"bot was blocked by the user"}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("t", srv.URL)
	err := c.SendMessage(context.Background(), 1, "hola")
	if err == nil {
		t.Fatal("expected error for ok=false response")
	}
	if !strings.Contains(err.Error(), "blocked by the user") {
		t.Errorf("error %q does not carry the API description", err)
	}
}

func TestDownloadVoice(t *testing.T) {
	const audio = "not-really-ogg-bytes"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getFile"):
			w.Write([]byte(`{"ok":true,"result":{"file_id":"abc","file_path":"voice/file_7.oga"}}`))
		case strings.HasPrefix(r.URL.Path, "/file/bott/"):
			w.Write([]byte(audio))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("t", srv.URL)
	path, err := c.DownloadVoice(context.Background(), "abc")
	if err != nil {
		t.Fatalf("DownloadVoice: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(data) != audio {
		t.Errorf("downloaded %q, want %q", data, audio)
	}
	if !strings.HasSuffix(path, ".oga") {
		t.Errorf("path %q should keep the .oga extension", path)
	}
}

func TestDownloadVoice_MissingFilePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":{"file_id":"abc"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("t", srv.URL)
	if _, err := c.DownloadVoice(context.Background(), "abc"); err == nil {
		t.Fatal("expected error when getFile returns no file_path")
	}
}
