package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"nekretnine-watcher/internal/contextkeys"
	"nekretnine-watcher/internal/core/port"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	requestTimeout = 30 * time.Second
	maxAttempts    = 3

	// defaultRetryAfter используется, когда 429 пришел без retry_after.
	defaultRetryAfter = 10 * time.Second
)

// apiResponse - минимальная форма ответа Bot API.
type apiResponse struct {
	OK         bool   `json:"ok"`
	Description string `json:"description"`
	Parameters struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Notifier реализует NotifierPort поверх Telegram Bot API.
// Rate-limit ретраится по серверному retry_after, транзиентные ошибки -
// экспоненциальным бэкоффом; после maxAttempts попыток сдаемся.
// Наружу уходит только булев исход.
type Notifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewNotifier создает нотификатор для одного чата.
func NewNotifier(botToken, chatID string) (*Notifier, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("telegram bot token and chat id are required")
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: requestTimeout},
		// Телеграм ограничивает отправку в один чат примерно до сообщения в секунду.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

// Notify отправляет одно уведомление: sendPhoto с подписью, если есть
// картинка, иначе sendMessage.
func (n *Notifier) Notify(ctx context.Context, notification port.Notification) bool {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "telegram_notifier"})

	if err := n.limiter.Wait(ctx); err != nil {
		return false
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, retryAfter, err := n.send(ctx, notification)
		if err == nil {
			return true
		}

		if status == http.StatusTooManyRequests {
			logger.Warn("Rate limited by Telegram, honoring retry-after", port.Fields{
				"retry_after": retryAfter.String(),
				"attempt":     attempt,
			})
			if !sleepCtx(ctx, retryAfter) {
				return false
			}
			continue
		}

		if attempt < maxAttempts {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			logger.Warn("Telegram send failed, retrying", port.Fields{
				"attempt": attempt,
				"backoff": backoff.String(),
				"error":   err.Error(),
			})
			if !sleepCtx(ctx, backoff) {
				return false
			}
			continue
		}

		logger.Error("Telegram send failed after all attempts", err, nil)
	}
	return false
}

// send делает один запрос к Bot API. Возвращает HTTP-статус и, для 429,
// серверную задержку.
func (n *Notifier) send(ctx context.Context, notification port.Notification) (int, time.Duration, error) {
	var req *http.Request
	var err error

	if len(notification.Image) > 0 {
		req, err = n.buildPhotoRequest(ctx, notification)
	} else {
		req, err = n.buildMessageRequest(ctx, notification)
	}
	if err != nil {
		return 0, 0, err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var parsed apiResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := defaultRetryAfter
		if parsed.Parameters.RetryAfter > 0 {
			retryAfter = time.Duration(parsed.Parameters.RetryAfter) * time.Second
		} else if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, parseErr := strconv.Atoi(header); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return resp.StatusCode, retryAfter, fmt.Errorf("telegram rate limit hit")
	}

	if resp.StatusCode != http.StatusOK || !parsed.OK {
		return resp.StatusCode, 0, fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, parsed.Description)
	}
	return resp.StatusCode, 0, nil
}

func (n *Notifier) buildMessageRequest(ctx context.Context, notification port.Notification) (*http.Request, error) {
	payload := map[string]interface{}{
		"chat_id":    n.chatID,
		"text":       notification.Text,
		"parse_mode": "HTML",
	}
	if markup := linkMarkup(notification.LinkURL); markup != nil {
		payload["reply_markup"] = markup
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.methodURL("sendMessage"), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (n *Notifier) buildPhotoRequest(ctx context.Context, notification port.Notification) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	_ = writer.WriteField("chat_id", n.chatID)
	_ = writer.WriteField("caption", notification.Text)
	_ = writer.WriteField("parse_mode", "HTML")

	if markup := linkMarkup(notification.LinkURL); markup != nil {
		markupJSON, err := json.Marshal(markup)
		if err == nil {
			_ = writer.WriteField("reply_markup", string(markupJSON))
		}
	}

	part, err := writer.CreateFormFile("photo", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := part.Write(notification.Image); err != nil {
		return nil, fmt.Errorf("failed to write photo bytes: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.methodURL("sendPhoto"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

func (n *Notifier) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", n.baseURL, n.botToken, method)
}

func linkMarkup(linkURL string) *inlineKeyboard {
	if linkURL == "" {
		return nil
	}
	return &inlineKeyboard{
		InlineKeyboard: [][]inlineButton{{{Text: "🔗 Pogledaj oglas", URL: linkURL}}},
	}
}

// sleepCtx ждет d или отмену контекста; false - контекст отменен.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
