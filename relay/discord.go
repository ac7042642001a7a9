package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	announcementQueue   = 32
	announcementTimeout = 10 * time.Second
)

// WebhookExecutor is the part of discordgo.Session the announcer needs.
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAnnouncer постит в Discord webhook сообщение о каждом новом турнире.
// Остальные события игнорирует.
type DiscordAnnouncer struct {
	executor  WebhookExecutor
	webhookID string
	token     string
	siteURL   string
	queue     chan TournamentEvent
	logger    *slog.Logger
}

func NewDiscordAnnouncer(executor WebhookExecutor, webhookID, token, siteURL string, logger *slog.Logger) *DiscordAnnouncer {
	return &DiscordAnnouncer{
		executor:  executor,
		webhookID: webhookID,
		token:     token,
		siteURL:   strings.TrimRight(siteURL, "/"),
		queue:     make(chan TournamentEvent, announcementQueue),
		logger:    logger,
	}
}

// NewDiscordWebhookAnnouncer создаёт анонсер поверх сессии discordgo без бот-токена.
func NewDiscordWebhookAnnouncer(webhookID, token, siteURL string, logger *slog.Logger) (*DiscordAnnouncer, error) {
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return NewDiscordAnnouncer(session, webhookID, token, siteURL, logger), nil
}

func (d *DiscordAnnouncer) Publish(event string, payload any) {
	if event != EventTournaments {
		return
	}
	var ev TournamentEvent
	switch p := payload.(type) {
	case TournamentEvent:
		ev = p
	case *TournamentEvent:
		if p == nil {
			return
		}
		ev = *p
	default:
		return
	}
	if ev.Action != ActionCreate {
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.logger.Warn("discord announcement queue full, dropped", slog.String("tournament_id", ev.TournamentID))
	}
}

// Run отправляет анонсы из очереди до отмены ctx.
func (d *DiscordAnnouncer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-d.queue:
			d.announce(ctx, ev)
		}
	}
}

func (d *DiscordAnnouncer) announce(ctx context.Context, ev TournamentEvent) {
	ctx, cancel := context.WithTimeout(ctx, announcementTimeout)
	defer cancel()

	_, err := d.executor.WebhookExecute(d.webhookID, d.token, false, d.message(ev), discordgo.WithContext(ctx))
	if err != nil {
		d.logger.Warn("failed to post discord announcement",
			slog.String("tournament_id", ev.TournamentID),
			slog.Any("error", err))
		return
	}
	d.logger.Info("tournament announced on discord", slog.String("tournament_id", ev.TournamentID))
}

func (d *DiscordAnnouncer) message(ev TournamentEvent) *discordgo.WebhookParams {
	embed := &discordgo.MessageEmbed{
		Title: ev.Title,
		Color: 0x5865F2,
	}
	if d.siteURL != "" && ev.Slug != "" {
		embed.URL = d.siteURL + "/tournaments/" + ev.Slug
	}
	if ev.StartsAt != nil {
		embed.Timestamp = ev.StartsAt.UTC().Format(time.RFC3339)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Starts",
			Value: fmt.Sprintf("<t:%d:F>", ev.StartsAt.Unix()),
		})
	}
	return &discordgo.WebhookParams{
		Content: "New tournament open for registration: **" + ev.Title + "**",
		Embeds:  []*discordgo.MessageEmbed{embed},
	}
}
