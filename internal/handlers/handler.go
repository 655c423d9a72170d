package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"festpost/internal/poster"
	"festpost/internal/telegram"
)

const usage = "🎨 FestPost\n\n" +
	"Festival greeting posters for your business.\n\n" +
	"Commands:\n" +
	"/festivals - supported festivals\n" +
	"/styles - visual styles\n" +
	"/ratios - aspect ratios\n" +
	"/poster <festival> <business name> | <tagline> | <style> | <ratio>\n\n" +
	"Only the festival and business name are required.\n" +
	"Example: /poster diwali Acme Bakery | Fresh every day | vibrant | 9:16"

// Messenger is the part of the Telegram client the handler needs.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendPhoto(chatID int64, imageURL string, caption string) error
	SendUploading(chatID int64)
}

type Options struct {
	Telegram Messenger
	Service  *poster.Service
	Logger   *slog.Logger
}

type Handler struct {
	tg     Messenger
	svc    *poster.Service
	logger *slog.Logger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:     opts.Telegram,
		svc:    opts.Service,
		logger: logger,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if !msg.IsCommand() {
		if strings.TrimSpace(msg.Text) == "" {
			return nil
		}
		return h.tg.SendText(chatID, usage)
	}

	return h.handleCommand(ctx, chatID, msg)
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	cat := h.svc.Catalog()

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, usage)
	case "festivals":
		var b strings.Builder
		b.WriteString("Supported festivals:\n")
		for _, f := range cat.Festivals() {
			fmt.Fprintf(&b, "%s %s - %s\n", f.Emoji, f.ID, f.Name)
		}
		return h.tg.SendText(chatID, b.String())
	case "styles":
		var b strings.Builder
		b.WriteString("Styles:\n")
		for _, s := range cat.Styles() {
			fmt.Fprintf(&b, "%s - %s\n", s.ID, s.Phrase)
		}
		fmt.Fprintf(&b, "\nDefault: %s", cat.DefaultStyle())
		return h.tg.SendText(chatID, b.String())
	case "ratios":
		var b strings.Builder
		b.WriteString("Aspect ratios:\n")
		for _, r := range cat.AspectRatios() {
			fmt.Fprintf(&b, "%s - %s (%dx%d)\n", r.ID, r.Name, r.Width, r.Height)
		}
		fmt.Fprintf(&b, "\nDefault: %s", cat.DefaultAspectRatio())
		return h.tg.SendText(chatID, b.String())
	case "poster":
		return h.handlePoster(ctx, chatID, msg.CommandArguments())
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

func (h *Handler) handlePoster(ctx context.Context, chatID int64, args string) error {
	req, err := parsePosterArgs(args)
	if err != nil {
		return h.tg.SendText(chatID, "❌ "+err.Error()+"\n\n"+usage)
	}

	h.tg.SendUploading(chatID)
	_ = h.tg.SendText(chatID, "🎨 Generating your poster, please wait...")

	rec, err := h.svc.Generate(ctx, req)
	if err != nil {
		var verr *poster.ValidationError
		if errors.As(err, &verr) {
			return h.tg.SendText(chatID, "❌ "+verr.Error()+". See /festivals.")
		}
		h.logger.Error("poster generation failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not generate the image. Please try again later.")
	}

	caption := rec.BusinessName
	if f, ok := h.svc.Catalog().Festival(rec.Festival); ok {
		caption = fmt.Sprintf("%s %s poster for %s", f.Emoji, f.Name, rec.BusinessName)
	}
	caption += "\nid: " + rec.ID

	if err := h.tg.SendPhoto(chatID, rec.URL, caption); err != nil {
		h.logger.Error("send photo failed", "chat_id", chatID, "id", rec.ID, "err", err)
		return h.tg.SendText(chatID, "✅ Poster ready: "+rec.URL)
	}
	return nil
}

// parsePosterArgs reads "<festival> <business name> | tagline | style | ratio".
func parsePosterArgs(args string) (poster.Request, error) {
	segments := strings.Split(args, "|")
	if len(segments) > 4 {
		return poster.Request{}, errors.New("too many | separated fields")
	}

	head := strings.Fields(segments[0])
	if len(head) == 0 {
		return poster.Request{}, errors.New("festival is required")
	}
	if len(head) == 1 {
		return poster.Request{}, errors.New("business name is required")
	}

	req := poster.Request{
		Festival:     strings.ToLower(head[0]),
		BusinessName: strings.Join(head[1:], " "),
	}
	if len(segments) > 1 {
		req.Tagline = strings.TrimSpace(segments[1])
	}
	if len(segments) > 2 {
		req.Style = strings.ToLower(strings.TrimSpace(segments[2]))
	}
	if len(segments) > 3 {
		req.AspectRatio = strings.TrimSpace(segments[3])
	}
	return req, nil
}

var _ Messenger = (*telegram.Client)(nil)
