package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestWebhook(url string) *WebhookManager {
	cfg := DefaultConfig()
	cfg.WebhookURL = url
	w := NewWebhookManager(NewConfigStore(cfg))
	w.messageDelay = time.Millisecond
	w.idleDelay = 5 * time.Millisecond
	w.emptyURLDelay = 5 * time.Millisecond
	return w
}

type webhookRecorder struct {
	mu       sync.Mutex
	texts    []string
	files    int
	requests int
}

func (r *webhookRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.requests++

		ct := req.Header.Get("Content-Type")
		if ct == "application/json" {
			body, _ := io.ReadAll(req.Body)
			var payload map[string]string
			json.Unmarshal(body, &payload)
			r.texts = append(r.texts, payload["content"])
			return
		}
		// Multipart screenshot upload.
		if err := req.ParseMultipartForm(1 << 20); err == nil {
			if _, _, err := req.FormFile("file"); err == nil {
				r.files++
			}
		}
	}
}

func (r *webhookRecorder) snapshot() (int, []string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests, append([]string(nil), r.texts...), r.files
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWebhookDeliversText(t *testing.T) {
	rec := &webhookRecorder{}
	server := httptest.NewServer(rec.handler())
	defer server.Close()

	w := newTestWebhook(server.URL)
	w.Start()
	defer w.Stop()

	w.SendText("hello")
	w.SendText("world")

	waitFor(t, 2*time.Second, func() bool {
		_, texts, _ := rec.snapshot()
		return len(texts) == 2
	})
	_, texts, _ := rec.snapshot()
	if texts[0] != "hello" || texts[1] != "world" {
		t.Errorf("delivered texts = %v, want FIFO [hello world]", texts)
	}
}

func TestWebhookDeliversScreenshot(t *testing.T) {
	rec := &webhookRecorder{}
	server := httptest.NewServer(rec.handler())
	defer server.Close()

	w := newTestWebhook(server.URL)
	w.Start()
	defer w.Stop()

	w.SendScreenshot("status", []byte{0xFF, 0xD8, 0xFF}) // JPEG magic is enough

	waitFor(t, 2*time.Second, func() bool {
		_, _, files := rec.snapshot()
		return files == 1
	})
}

func TestWebhookQueueDropsOldest(t *testing.T) {
	w := newTestWebhook("") // worker idles; queues fill
	for i := 0; i < 60; i++ {
		w.SendText(string(rune('A' + i%26)))
	}
	if len(w.texts) != textQueueCap {
		t.Errorf("text queue length = %d, want %d", len(w.texts), textQueueCap)
	}
	// The first 10 entries (A..J) were dropped; queue starts at index 10 (K).
	if w.texts[0] != "K" {
		t.Errorf("oldest queued text = %q, want K", w.texts[0])
	}

	for i := 0; i < 15; i++ {
		w.SendScreenshot("s", nil)
	}
	if len(w.screenshots) != screenshotQueueCap {
		t.Errorf("screenshot queue length = %d, want %d", len(w.screenshots), screenshotQueueCap)
	}
}

func TestWebhookEmptyURLSendsNothing(t *testing.T) {
	rec := &webhookRecorder{}
	server := httptest.NewServer(rec.handler())
	defer server.Close()

	w := newTestWebhook("")
	w.Start()
	w.SendText("should stay queued")

	time.Sleep(50 * time.Millisecond)
	w.Stop()

	requests, _, _ := rec.snapshot()
	if requests != 0 {
		t.Errorf("requests = %d with empty URL, want 0", requests)
	}
	if w.QueueDepth() != 1 {
		t.Errorf("queue depth = %d, want 1 (message retained)", w.QueueDepth())
	}
}

func TestWebhookPeriodicScreenshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScreenshotEnabled = true
	cfg.ScreenshotIntervalMin = 1
	w := NewWebhookManager(NewConfigStore(cfg))

	captures := 0
	capture := func() ([]byte, error) {
		captures++
		return []byte{1}, nil
	}

	// Interval has not elapsed since construction: no capture.
	w.CheckPeriodicScreenshot(capture)
	if captures != 0 {
		t.Errorf("captured before interval elapsed")
	}

	// Force the last-screenshot time into the past.
	w.lastScreenshot = time.Now().Add(-2 * time.Minute)
	w.CheckPeriodicScreenshot(capture)
	if captures != 1 {
		t.Errorf("captures = %d after interval elapsed, want 1", captures)
	}
	if w.QueueDepth() != 1 {
		t.Errorf("queue depth = %d, want 1 queued screenshot", w.QueueDepth())
	}

	// Disabled feature never captures.
	cfg.ScreenshotEnabled = false
	w = NewWebhookManager(NewConfigStore(cfg))
	w.lastScreenshot = time.Now().Add(-2 * time.Minute)
	w.CheckPeriodicScreenshot(capture)
	if captures != 1 {
		t.Errorf("captured while feature disabled")
	}
}
