// Package main - webhook.go
//
// Asynchronous Discord-style webhook delivery.
//
// Producers enqueue and return immediately. Two capacity-bounded queues
// (text and screenshot) drop their oldest entry on overflow, silently; a
// single worker drains a few messages per cycle with a fixed inter-message
// delay so the endpoint is never burst-flooded. Delivery is fire and
// forget: an HTTP failure is logged and the message is gone.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

const (
	textQueueCap       = 50
	screenshotQueueCap = 10
	drainPerCycle      = 5

	defaultMessageDelay  = 500 * time.Millisecond
	defaultIdleDelay     = 2 * time.Second
	defaultEmptyURLDelay = 5 * time.Second
)

type screenshotMessage struct {
	caption string
	jpeg    []byte
}

// WebhookManager queues and delivers webhook notifications.
type WebhookManager struct {
	mu          sync.Mutex
	texts       []string
	screenshots []screenshotMessage

	config *ConfigStore
	client *http.Client

	// Pacing knobs, shrunk in tests.
	messageDelay  time.Duration
	idleDelay     time.Duration
	emptyURLDelay time.Duration

	lastScreenshot time.Time

	stop chan struct{}
	done chan struct{}
}

// NewWebhookManager creates a manager reading the webhook URL from the
// shared config on every cycle, so URL changes apply without a restart.
func NewWebhookManager(config *ConfigStore) *WebhookManager {
	return &WebhookManager{
		config:         config,
		client:         &http.Client{Timeout: 10 * time.Second},
		messageDelay:   defaultMessageDelay,
		idleDelay:      defaultIdleDelay,
		emptyURLDelay:  defaultEmptyURLDelay,
		lastScreenshot: time.Now(),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// SendText queues a text notification. Never blocks; the oldest queued
// message is dropped when the queue is full.
func (w *WebhookManager) SendText(content string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.texts) >= textQueueCap {
		w.texts = w.texts[1:]
	}
	w.texts = append(w.texts, content)
}

// SendScreenshot queues a JPEG screenshot with a caption. Never blocks;
// drop-oldest on overflow.
func (w *WebhookManager) SendScreenshot(caption string, jpegData []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.screenshots) >= screenshotQueueCap {
		w.screenshots = w.screenshots[1:]
	}
	w.screenshots = append(w.screenshots, screenshotMessage{caption: caption, jpeg: jpegData})
}

// QueueDepth returns the combined number of pending messages.
func (w *WebhookManager) QueueDepth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.texts) + len(w.screenshots)
}

// CheckPeriodicScreenshot captures and queues a status screenshot when the
// configured interval has elapsed. capture produces JPEG bytes on demand so
// no screenshot is taken when the feature is off or the interval has not
// passed.
func (w *WebhookManager) CheckPeriodicScreenshot(capture func() ([]byte, error)) {
	cfg := w.config.Get()
	if !cfg.ScreenshotEnabled || cfg.ScreenshotIntervalMin == 0 {
		return
	}
	interval := time.Duration(cfg.ScreenshotIntervalMin) * time.Minute

	w.mu.Lock()
	due := time.Since(w.lastScreenshot) >= interval
	if due {
		w.lastScreenshot = time.Now()
	}
	w.mu.Unlock()
	if !due {
		return
	}

	data, err := capture()
	if err != nil {
		LogWarn("Webhook: periodic screenshot capture failed: %v", err)
		return
	}
	w.SendScreenshot("Periodic status screenshot", data)
}

// Start launches the drain worker.
func (w *WebhookManager) Start() {
	SafeGo("webhook-worker", w.run)
}

// Stop shuts the worker down and waits for it to exit.
func (w *WebhookManager) Stop() {
	close(w.stop)
	<-w.done
}

func (w *WebhookManager) run() {
	defer close(w.done)
	for {
		url := w.config.Get().WebhookURL
		if url == "" {
			// Nothing can be delivered; let queues accumulate and drop.
			if w.sleep(w.emptyURLDelay) {
				return
			}
			continue
		}

		delivered := w.drainCycle(url)
		if delivered == 0 {
			if w.sleep(w.idleDelay) {
				return
			}
			continue
		}
		if w.sleep(w.messageDelay) {
			return
		}
	}
}

// drainCycle delivers up to drainPerCycle messages, texts before
// screenshots, pacing each with messageDelay.
func (w *WebhookManager) drainCycle(url string) int {
	delivered := 0
	for delivered < drainPerCycle {
		text, screenshot, ok := w.dequeue()
		if !ok {
			break
		}

		var err error
		if screenshot != nil {
			err = w.postScreenshot(url, *screenshot)
		} else {
			err = w.postText(url, text)
		}
		if err != nil {
			LogWarn("Webhook: delivery failed: %v", err)
		}
		delivered++

		if delivered < drainPerCycle && w.QueueDepth() > 0 {
			if w.sleep(w.messageDelay) {
				break
			}
		}
	}
	return delivered
}

func (w *WebhookManager) dequeue() (string, *screenshotMessage, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.texts) > 0 {
		text := w.texts[0]
		w.texts = w.texts[1:]
		return text, nil, true
	}
	if len(w.screenshots) > 0 {
		shot := w.screenshots[0]
		w.screenshots = w.screenshots[1:]
		return "", &shot, true
	}
	return "", nil, false
}

func (w *WebhookManager) postText(url, content string) error {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}
	resp, err := w.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

func (w *WebhookManager) postScreenshot(url string, msg screenshotMessage) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("content", msg.caption); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("file", "screenshot.jpg")
	if err != nil {
		return err
	}
	if _, err := part.Write(msg.jpeg); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	resp, err := w.client.Post(url, writer.FormDataContentType(), &body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// sleep waits for d or until Stop, reporting whether the worker should exit.
func (w *WebhookManager) sleep(d time.Duration) bool {
	select {
	case <-w.stop:
		return true
	case <-time.After(d):
		return false
	}
}
