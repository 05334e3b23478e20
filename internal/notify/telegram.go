package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jobmate/jobalert-service/internal/config"
	"jobmate/jobalert-service/internal/model"
)

const (
	// telegramMaxJobs keeps one alert within a single message.
	telegramMaxJobs = 8

	// telegramSeenWindow is how long a posted job or report subject is
	// remembered. It spans one cycle fanning out over every profile.
	telegramSeenWindow = time.Hour
)

// Telegram sends to one chat configured for the whole service, so it is
// used for every profile. A job or report already posted within
// telegramSeenWindow is not posted again when the next profile's batch
// arrives.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewTelegram connects the bot. endpoint overrides the Bot API URL format
// (tgbotapi.APIEndpoint when empty). It returns nil, nil when the token or
// chat id is missing.
func NewTelegram(cfg config.TelegramConfig, endpoint string) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" || cfg.ChatID == 0 {
		return nil, nil
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Telegram{
		bot:    bot,
		chatID: cfg.ChatID,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}, nil
}

// AsChannel returns t as a Channel, or nil for a nil t.
func (t *Telegram) AsChannel() Channel {
	if t == nil {
		return nil
	}
	return t
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Wants(*model.Profile) bool { return true }

func (t *Telegram) SendJobs(_ context.Context, _ *model.Profile, jobs []model.Job) error {
	keys := make([]string, 0, len(jobs))
	unsent := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		key := "job:" + j.URL
		if t.posted(key) {
			continue
		}
		keys = append(keys, key)
		unsent = append(unsent, j)
	}
	if len(unsent) == 0 {
		return nil
	}
	if err := t.send(telegramJobsText(unsent)); err != nil {
		return err
	}
	t.remember(keys...)
	return nil
}

func (t *Telegram) SendText(_ context.Context, _ *model.Profile, subject, body string) error {
	key := "text:" + subject
	if t.posted(key) {
		return nil
	}
	if err := t.send(fmt.Sprintf("<b>%s</b>\n\n%s", html.EscapeString(subject), html.EscapeString(body))); err != nil {
		return err
	}
	t.remember(key)
	return nil
}

func (t *Telegram) posted(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.seen[key]
	return ok && t.now().Sub(at) < telegramSeenWindow
}

func (t *Telegram) remember(keys ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for k, at := range t.seen {
		if now.Sub(at) >= telegramSeenWindow {
			delete(t.seen, k)
		}
	}
	for _, k := range keys {
		t.seen[k] = now
	}
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

func telegramJobsText(jobs []model.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n%s\n\n", headline(len(jobs)), html.EscapeString(summary(jobs)))

	shown := jobs
	if len(shown) > telegramMaxJobs {
		shown = shown[:telegramMaxJobs]
	}
	for i, j := range shown {
		fmt.Fprintf(&b, "<b>%d. %s</b>\n", i+1, html.EscapeString(j.Title))
		fmt.Fprintf(&b, "🏢 %s\n📍 %s\n", html.EscapeString(j.Company), html.EscapeString(j.Location))
		if s := model.Deref(j.SalaryText); s != "" {
			fmt.Fprintf(&b, "💰 %s\n", html.EscapeString(s))
		}
		if s := model.Deref(j.ExperienceText); s != "" {
			fmt.Fprintf(&b, "📈 %s\n", html.EscapeString(s))
		}
		if j.JobScore > 0 {
			fmt.Fprintf(&b, "⭐ Score: %.1f/100\n", j.JobScore)
		}
		fmt.Fprintf(&b, "🔗 <a href=\"%s\">Apply Here</a>\n\n", html.EscapeString(j.URL))
	}
	if len(jobs) > telegramMaxJobs {
		b.WriteString(moreJobs(len(jobs), telegramMaxJobs))
	}
	return b.String()
}
