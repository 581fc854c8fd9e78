package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Spok95/bom-console/internal/console"
	"github.com/Spok95/bom-console/internal/dialog"
	"github.com/Spok95/bom-console/internal/domain/lowstock"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API часть *tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type StateStore interface {
	Get(ctx context.Context, chatID int64) (*dialog.Item, error)
	Set(ctx context.Context, chatID int64, state dialog.State, payload dialog.Payload) error
	Reset(ctx context.Context, chatID int64) error
}

type Bot struct {
	api       API
	log       *slog.Logger
	states    StateStore
	svc       *console.Service
	adminChat int64
	http      *http.Client

	mu     sync.Mutex
	drafts map[int64]*console.Draft // черновики изделий по чатам
}

func New(api API, log *slog.Logger, states StateStore, svc *console.Service, adminChatID int64) *Bot {
	return &Bot{
		api:       api,
		log:       log.With("component", "bot"),
		states:    states,
		svc:       svc,
		adminChat: adminChatID,
		http:      &http.Client{Timeout: 30 * time.Second},
		drafts:    map[int64]*console.Draft{},
	}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.closeDrafts()
			return ctx.Err()
		case upd := <-updates:
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		b.onMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.onCallback(ctx, upd.CallbackQuery)
	}
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !b.allowed(msg.Chat.ID) {
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Доступ запрещён."))
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleStateMessage(ctx, msg)
}

func (b *Bot) onCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || !b.allowed(cb.Message.Chat.ID) {
		_ = b.answerCallback(cb, "Доступ запрещён", true)
		return
	}
	b.handleCallback(ctx, cb)
}

// allowed без admin_chat_id консоль открыта всем (режим разработки).
func (b *Bot) allowed(chatID int64) bool {
	return b.adminChat == 0 || chatID == b.adminChat
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

// LowStockDigest сводка разосланных писем в админ-чат.
func (b *Bot) LowStockDigest(_ context.Context, entries []lowstock.Entry) {
	if b.adminChat == 0 || len(entries) == 0 {
		return
	}
	var sb strings.Builder
	sb.WriteString("📨 Письма поставщикам о низком остатке:\n")
	for _, e := range entries {
		supplier := "—"
		if e.Supplier != nil {
			supplier = e.Supplier.Name
		}
		fmt.Fprintf(&sb, "— %s → %s: заказать %s", e.MaterialName, supplier, e.RecommendedOrder.String())
		if e.Outcome == lowstock.OutcomePersistFail {
			sb.WriteString(" (отметка на сервере не сохранилась)")
		}
		sb.WriteString("\n")
	}
	b.send(tgbotapi.NewMessage(b.adminChat, strings.TrimSpace(sb.String())))
}

// downloadTelegramFile скачивает файл по FileID через Telegram API.
func (b *Bot) downloadTelegramFile(fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	resp, err := b.http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram returned status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}
