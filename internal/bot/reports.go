package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Spok95/bom-console/internal/report"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) exportMaterials(chatID int64) {
	data, err := report.Materials(b.svc.Materials(), b.svc.StateOf)
	if err != nil {
		b.log.Error("materials export failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось сформировать файл."))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("materials_%s.xlsx", time.Now().Format("20060102_150405")),
		Bytes: data,
	})
	doc.Caption = "Остатки материалов.\nЗаполните колонку restock_qty (и при желании cost_per_unit) " +
		"и загрузите файл через «" + btnImport + "»."
	b.send(doc)
}

func (b *Bot) exportProducts(ctx context.Context, chatID int64) {
	data, err := report.Products(b.svc.Products(ctx))
	if err != nil {
		b.log.Error("products export failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось сформировать файл."))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("products_%s.xlsx", time.Now().Format("20060102_150405")),
		Bytes: data,
	})
	doc.Caption = "Изделия: себестоимость, цена и сколько можно собрать."
	b.send(doc)
}

// handleRestockImport проводит приход по строкам файла с restock_qty.
// Файл проверяется целиком до первого прихода.
func (b *Bot) handleRestockImport(ctx context.Context, chatID int64, doc *tgbotapi.Document) {
	data, err := b.downloadTelegramFile(doc.FileID)
	if err != nil {
		b.log.Error("download failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось скачать файл, попробуйте ещё раз."))
		return
	}

	items, err := report.ParseRestock(data)
	if err != nil {
		var re *report.RowError
		if errors.As(err, &re) {
			b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Ошибка в строке %d: %s", re.Row, re.Reason)))
		} else {
			b.send(tgbotapi.NewMessage(chatID, "Не удалось прочитать Excel-файл (повреждён или не .xlsx)."))
		}
		return
	}
	if len(items) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "В файле нет строк с заполненным restock_qty."))
		return
	}

	done, err := b.svc.RestockBatch(ctx, items)
	if err != nil {
		b.log.Error("import restock failed", "err", err, "rows", len(items), "done", done)
	}
	failed := len(items) - done
	_ = b.states.Reset(ctx, chatID)

	text := fmt.Sprintf("✅ Приход из файла: проведено %d", done)
	if failed > 0 {
		text += fmt.Sprintf(", с ошибкой %d (подробности в логе)", failed)
	}
	b.send(tgbotapi.NewMessage(chatID, text))
}
