package bot

import (
	"strings"

	"github.com/Spok95/bom-console/internal/domain/materials"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

/*** HELPERS ***/

func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) error {
	resp := tgbotapi.NewCallback(cb.ID, text)
	resp.ShowAlert = alert
	_, err := b.api.Request(resp)
	return err
}

// show правит сообщение с кнопками, если оно есть, иначе шлёт новое.
func (b *Bot) show(chatID int64, editMsgID *int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	if editMsgID != nil {
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, *editMsgID, text, kb))
		return
	}
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = kb
	b.send(m)
}

func (b *Bot) editTextAndClear(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		chatID, messageID, text,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	b.send(edit)
}

func (b *Bot) prompt(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = navKeyboard(true, true)
	b.send(m)
}

// parseDecimal принимает и запятую: «12,5».
func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// Бейдж остатка
func badge(m materials.Material) string {
	switch m.Status() {
	case materials.StatusOutOfStock:
		return "🔴"
	case materials.StatusLowStock:
		return "🟡"
	default:
		return "🟢"
	}
}
