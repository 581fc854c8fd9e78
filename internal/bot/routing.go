package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/Spok95/bom-console/internal/dialog"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.dropDraft(chatID)
		_ = b.states.Reset(ctx, chatID)
		m := tgbotapi.NewMessage(chatID,
			"Консоль склада и себестоимости. Материалы, дефицит и конструктор изделий — на кнопках снизу.")
		m.ReplyMarkup = mainReplyKeyboard()
		b.send(m)

	case "help":
		b.send(tgbotapi.NewMessage(chatID,
			"Команды:\n/start — главное меню\n/scan — проверить дефицит и разослать письма\n/help — помощь"))

	case "scan":
		b.runLowStockScan(ctx, chatID, nil)

	default:
		b.send(tgbotapi.NewMessage(chatID, "Не знаю такую команду. Наберите /help"))
	}
}

func (b *Bot) handleStateMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.log.Error("dialog state load failed", "err", err, "chat_id", chatID)
		st = &dialog.Item{ChatID: chatID, State: dialog.StateIdle, Payload: dialog.Payload{}}
	}

	if msg.Document != nil {
		if st.State != dialog.StateRestockFile {
			b.send(tgbotapi.NewMessage(chatID, "Файл сейчас не ожидается. Нажмите «"+btnImport+"»."))
			return
		}
		b.handleRestockImport(ctx, chatID, msg.Document)
		return
	}

	// Нижняя панель
	switch msg.Text {
	case btnMaterials:
		b.showMaterialList(ctx, chatID, nil)
		return
	case btnLowStock:
		b.showLowStock(ctx, chatID, nil)
		return
	case btnComposer:
		b.startComposer(ctx, chatID)
		return
	case btnProducts:
		b.showProducts(ctx, chatID)
		return
	case btnExport:
		b.show(chatID, nil, "Выгрузка в Excel — что выгрузить?", exportKeyboard())
		return
	case btnImport:
		_ = b.states.Set(ctx, chatID, dialog.StateRestockFile, dialog.Payload{})
		b.prompt(chatID, "Пришлите заполненный файл остатков (.xlsx): колонка restock_qty — сколько пришло, "+
			"cost_per_unit — цена за единицу, supplier — поставщик.")
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch st.State {
	case dialog.StateMatAddName, dialog.StateMatAddSKU, dialog.StateMatAddQty,
		dialog.StateMatAddCost, dialog.StateMatAddROL:
		b.onMaterialInput(ctx, chatID, st, text)

	case dialog.StateRestockQty, dialog.StateRestockCost:
		b.onRestockInput(ctx, chatID, st, text)

	case dialog.StateBomName, dialog.StateBomQty, dialog.StateBomSkillNew,
		dialog.StateBomHours, dialog.StateBomWeight, dialog.StateBomMargin:
		b.onComposerInput(ctx, chatID, st, text)

	case dialog.StateRestockFile:
		b.send(tgbotapi.NewMessage(chatID, "Жду файл .xlsx. Для отмены нажмите /start."))

	default:
		b.send(tgbotapi.NewMessage(chatID, "Выберите действие на клавиатуре снизу."))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	data := cb.Data
	_ = b.answerCallback(cb, "", false)

	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.log.Error("dialog state load failed", "err", err, "chat_id", chatID)
		st = &dialog.Item{ChatID: chatID, State: dialog.StateIdle, Payload: dialog.Payload{}}
	}

	switch {
	case data == "nav:cancel":
		b.dropDraft(chatID)
		_ = b.states.Reset(ctx, chatID)
		b.editTextAndClear(chatID, msgID, "Отменено.")

	case data == "nav:back":
		b.goBack(ctx, chatID, msgID, st)

	case strings.HasPrefix(data, "mat:"):
		b.onMaterialCallback(ctx, chatID, msgID, st, strings.TrimPrefix(data, "mat:"))

	case strings.HasPrefix(data, "rs:"):
		b.onRestockCallback(ctx, chatID, msgID, st, strings.TrimPrefix(data, "rs:"))

	case strings.HasPrefix(data, "bom:"):
		b.onComposerCallback(ctx, chatID, msgID, st, strings.TrimPrefix(data, "bom:"))

	case data == "low:list":
		b.showLowStock(ctx, chatID, &msgID)

	case data == "low:scan":
		b.runLowStockScan(ctx, chatID, &msgID)

	case data == "exp:mat":
		b.exportMaterials(chatID)

	case data == "exp:prod":
		b.exportProducts(ctx, chatID)

	default:
		b.log.Warn("unknown callback", "data", data)
	}
}

func (b *Bot) goBack(ctx context.Context, chatID int64, msgID int, st *dialog.Item) {
	switch st.State {
	case dialog.StateMatItem, dialog.StateMatList,
		dialog.StateMatAddName, dialog.StateMatAddSKU, dialog.StateMatAddCat,
		dialog.StateMatAddQty, dialog.StateMatAddCost, dialog.StateMatAddROL:
		b.showMaterialList(ctx, chatID, &msgID)

	case dialog.StateRestockQty, dialog.StateRestockCost, dialog.StateRestockSupplier, dialog.StateRestockConfirm:
		id, _ := dialog.GetInt64(st.Payload, "material_id")
		b.showMaterialItem(ctx, chatID, &msgID, id)

	case dialog.StateBomPick, dialog.StateBomQty, dialog.StateBomSkills, dialog.StateBomSkillNew,
		dialog.StateBomHours, dialog.StateBomWeight, dialog.StateBomMargin, dialog.StateBomSummary:
		d := b.draft(ctx, chatID, st.Payload)
		b.showComposer(ctx, chatID, &msgID, d, "")

	default:
		_ = b.states.Reset(ctx, chatID)
		b.editTextAndClear(chatID, msgID, "Главное меню — кнопки снизу.")
	}
}

// idArg разбирает числовой хвост callback-данных («item:12» → 12).
func idArg(s, prefix string) (int64, bool) {
	if !strings.HasPrefix(s, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(s, prefix), 10, 64)
	return id, err == nil
}
