package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nekretnine-watcher/internal/core/port"
)

func newTestNotifier(t *testing.T, handler http.HandlerFunc) (*Notifier, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	n, err := NewNotifier("test-token", "12345")
	if err != nil {
		t.Fatalf("NewNotifier: %v", err)
	}
	n.baseURL = server.URL
	return n, server
}

func TestNotifySendsMessage(t *testing.T) {
	var gotPath string
	var gotBody string

	n, _ := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`{"ok":true}`))
	})

	ok := n.Notify(context.Background(), port.Notification{
		Text:    "Novi oglas",
		LinkURL: "https://example.rs/stan-1",
	})
	if !ok {
		t.Fatal("Notify = false, want true")
	}
	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("path = %q, want sendMessage", gotPath)
	}
	if !strings.Contains(gotBody, `"chat_id":"12345"`) {
		t.Errorf("body missing chat_id: %s", gotBody)
	}
	if !strings.Contains(gotBody, "inline_keyboard") {
		t.Errorf("body missing link button markup: %s", gotBody)
	}
}

func TestNotifySendsPhotoWhenImagePresent(t *testing.T) {
	var gotPath string
	var gotContentType string

	n, _ := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"ok":true}`))
	})

	ok := n.Notify(context.Background(), port.Notification{
		Text:  "Novi oglas",
		Image: []byte{0xff, 0xd8, 0xff},
	})
	if !ok {
		t.Fatal("Notify = false, want true")
	}
	if gotPath != "/bottest-token/sendPhoto" {
		t.Errorf("path = %q, want sendPhoto", gotPath)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Errorf("content type = %q, want multipart", gotContentType)
	}
}

func TestNotifyHonorsRateLimitRetryAfter(t *testing.T) {
	var calls int

	n, _ := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"ok":false,"description":"Too Many Requests","parameters":{"retry_after":1}}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})

	ok := n.Notify(context.Background(), port.Notification{Text: "Novi oglas"})
	if !ok {
		t.Fatal("Notify = false, want true after a single rate-limit retry")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestNotifyGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int

	n, _ := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"ok":false,"description":"internal error"}`))
	})

	ok := n.Notify(context.Background(), port.Notification{Text: "Novi oglas"})
	if ok {
		t.Fatal("Notify = true, want false after exhausting attempts")
	}
	if calls != maxAttempts {
		t.Errorf("calls = %d, want %d", calls, maxAttempts)
	}
}

func TestNotifyPacesMessagesToOneChat(t *testing.T) {
	n, _ := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})

	// Лимитер принадлежит нотификатору, поэтому все воркеры одного чата
	// обязаны делить один экземпляр: два подряд сообщения разносятся
	// минимум на секунду.
	start := time.Now()
	if ok := n.Notify(context.Background(), port.Notification{Text: "prvi"}); !ok {
		t.Fatal("first Notify failed")
	}
	if ok := n.Notify(context.Background(), port.Notification{Text: "drugi"}); !ok {
		t.Fatal("second Notify failed")
	}

	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("two sends completed in %v, want at least ~1s of pacing", elapsed)
	}
}

func TestNotifyStopsOnContextCancel(t *testing.T) {
	n, _ := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"ok":false}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if ok := n.Notify(ctx, port.Notification{Text: "Novi oglas"}); ok {
		t.Fatal("Notify = true, want false with a canceled context")
	}
}
