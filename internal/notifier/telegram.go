package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultTelegramAPI is the Telegram Bot API host.
	DefaultTelegramAPI = "https://api.telegram.org"

	maxMessageRunes = 4096
)

// errPermanent marks API rejections that retrying cannot fix.
var errPermanent = errors.New("telegram rejected message")

// TelegramNotifier sends reports via the Telegram Bot API.
type TelegramNotifier struct {
	APIBase  string
	BotToken string
	ChatID   string
	Client   *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		APIBase:  DefaultTelegramAPI,
		BotToken: botToken,
		ChatID:   chatID,
		// Long enough for a 30 s getUpdates long poll.
		Client: &http.Client{Timeout: 35 * time.Second, Transport: transport},
	}
}

func (t *TelegramNotifier) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, name)
}

// splitMessage breaks text into chunks under the Telegram size limit,
// preferring line boundaries.
func splitMessage(text string) []string {
	if utf8.RuneCountInString(text) <= maxMessageRunes {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	n := 0
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		for utf8.RuneCountInString(line) > maxMessageRunes {
			flush()
			r := []rune(line)
			chunks = append(chunks, string(r[:maxMessageRunes]))
			line = string(r[maxMessageRunes:])
		}
		ln := utf8.RuneCountInString(line)
		if n+ln > maxMessageRunes {
			flush()
		}
		cur.WriteString(line)
		n += ln
	}
	flush()
	return chunks
}

// Send delivers text to the configured chat, split into several messages when long.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	for i, chunk := range splitMessage(text) {
		if err := t.sendChunk(ctx, chunk); err != nil {
			return fmt.Errorf("message part %d: %w", i+1, err)
		}
	}
	return nil
}

func (t *TelegramNotifier) sendChunk(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	respBody, _ := io.ReadAll(resp.Body)
	apiErr := fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", errPermanent, apiErr)
	}
	return apiErr
}

// SendWithRetry sends a message with exponential backoff. Client errors other
// than rate limiting are returned without retrying.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		if errors.Is(err, errPermanent) {
			return err
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", attempt+1, maxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
