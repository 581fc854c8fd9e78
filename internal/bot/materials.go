package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/bom-console/internal/dialog"
	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/Spok95/bom-console/internal/domain/inventory"
	"github.com/Spok95/bom-console/internal/domain/lowstock"
	"github.com/Spok95/bom-console/internal/domain/materials"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// кнопок в одном сообщении больше не показываем
const maxListButtons = 60

func (b *Bot) showMaterialList(ctx context.Context, chatID int64, editMsgID *int) {
	_ = b.states.Set(ctx, chatID, dialog.StateMatList, dialog.Payload{})

	items := b.svc.Materials()
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i, m := range items {
		if i == maxListButtons {
			break
		}
		label := fmt.Sprintf("%s %s — %s %s", badge(m), m.Name, m.QuantityOnHand.String(), m.Unit)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("mat:item:%d", m.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Добавить", "mat:add"),
		tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить", "mat:refresh"),
	))
	rows = append(rows, navKeyboard(false, true).InlineKeyboard[0])

	text := "Материалы:"
	if len(items) == 0 {
		text = "Материалов нет или сервер склада недоступен. Попробуйте «Обновить»."
	}
	b.show(chatID, editMsgID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) showMaterialItem(ctx context.Context, chatID int64, editMsgID *int, id int64) {
	m, ok := b.svc.Material(id)
	if !ok {
		b.show(chatID, editMsgID, "Материал не найден", navKeyboard(true, true))
		return
	}
	_ = b.states.Set(ctx, chatID, dialog.StateMatItem, dialog.Payload{"material_id": id})

	state := b.svc.StateOf(m)
	supplier := m.SupplierName
	if supplier == "" {
		supplier = "не указан"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Материал: %s %s (%s)\n", badge(m), m.Name, m.SKU)
	fmt.Fprintf(&sb, "Категория: %s\n", m.Category)
	fmt.Fprintf(&sb, "Остаток: %s %s (мин. %s)\n", m.QuantityOnHand.String(), m.Unit, m.ReorderLevel.String())
	fmt.Fprintf(&sb, "Цена: %s\n", money(m.CostPerUnit))
	fmt.Fprintf(&sb, "Поставщик: %s\n", supplier)
	fmt.Fprintf(&sb, "Письмо поставщику: %s", notifyLabel(state))
	if m.IsLow() {
		fmt.Fprintf(&sb, "\nРекомендуемый заказ: %s %s", b.svc.RecommendedOrder(m).String(), m.Unit)
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📦 Приход", fmt.Sprintf("rs:start:%d", id)),
		),
	}
	if state == lowstock.Notified {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Сбросить отметку письма", fmt.Sprintf("mat:reset:%d", id)),
		))
	}
	rows = append(rows, navKeyboard(true, true).InlineKeyboard[0])
	b.show(chatID, editMsgID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func notifyLabel(s lowstock.State) string {
	switch s {
	case lowstock.LowPendingNotify:
		return "ждёт отправки"
	case lowstock.Notified:
		return "отправлено"
	default:
		return "не требуется"
	}
}

func (b *Bot) onMaterialCallback(ctx context.Context, chatID int64, msgID int, st *dialog.Item, data string) {
	switch {
	case data == "list":
		b.showMaterialList(ctx, chatID, &msgID)

	case data == "refresh":
		b.svc.Refresh(ctx)
		b.showMaterialList(ctx, chatID, &msgID)

	case data == "add":
		_ = b.states.Set(ctx, chatID, dialog.StateMatAddName, dialog.Payload{})
		b.show(chatID, &msgID, "Новый материал. Введите название:", navKeyboard(true, true))

	case strings.HasPrefix(data, "cat:"):
		if st.State != dialog.StateMatAddCat {
			return
		}
		st.Payload["category"] = strings.TrimPrefix(data, "cat:")
		_ = b.states.Set(ctx, chatID, dialog.StateMatAddQty, st.Payload)
		b.show(chatID, &msgID, "Текущий остаток (число):", navKeyboard(true, true))

	default:
		if id, ok := idArg(data, "item:"); ok {
			b.showMaterialItem(ctx, chatID, &msgID, id)
			return
		}
		if id, ok := idArg(data, "reset:"); ok {
			if err := b.svc.ResetNotified(ctx, id); err != nil {
				b.log.Error("reset notified failed", "err", err, "material_id", id)
				b.show(chatID, &msgID, "Не удалось сбросить отметку: "+err.Error(), navKeyboard(true, true))
				return
			}
			b.showMaterialItem(ctx, chatID, &msgID, id)
		}
	}
}

// onMaterialInput шаги формы «Новый материал».
func (b *Bot) onMaterialInput(ctx context.Context, chatID int64, st *dialog.Item, text string) {
	p := st.Payload
	switch st.State {
	case dialog.StateMatAddName:
		if text == "" {
			b.prompt(chatID, "Название не может быть пустым. Введите название:")
			return
		}
		p["name"] = text
		_ = b.states.Set(ctx, chatID, dialog.StateMatAddSKU, p)
		b.prompt(chatID, "Артикул (SKU):")
		return

	case dialog.StateMatAddSKU:
		if text == "" {
			b.prompt(chatID, "Артикул обязателен. Введите SKU:")
			return
		}
		p["sku"] = text
		_ = b.states.Set(ctx, chatID, dialog.StateMatAddCat, p)
		m := tgbotapi.NewMessage(chatID, "Категория:")
		m.ReplyMarkup = categoryKeyboard()
		b.send(m)
		return
	}

	v, err := parseDecimal(text)
	if err != nil || v.IsNegative() {
		b.prompt(chatID, "Нужно неотрицательное число, например 12 или 0,5:")
		return
	}

	switch st.State {
	case dialog.StateMatAddQty:
		p["quantity"] = v.String()
		_ = b.states.Set(ctx, chatID, dialog.StateMatAddCost, p)
		b.prompt(chatID, "Цена за единицу:")
	case dialog.StateMatAddCost:
		p["cost"] = v.String()
		_ = b.states.Set(ctx, chatID, dialog.StateMatAddROL, p)
		b.prompt(chatID, "Минимальный остаток (уровень дозаказа):")
	case dialog.StateMatAddROL:
		p["reorder_level"] = v.String()
		b.createMaterial(ctx, chatID, p)
	}
}

func (b *Bot) createMaterial(ctx context.Context, chatID int64, p dialog.Payload) {
	name, _ := dialog.GetString(p, "name")
	sku, _ := dialog.GetString(p, "sku")
	cat, _ := dialog.GetString(p, "category")
	n := materials.NewMaterial{
		Name:         name,
		SKU:          sku,
		Category:     materials.Category(cat),
		Unit:         "pcs",
		Quantity:     payloadDecimal(p, "quantity"),
		CostPerUnit:  payloadDecimal(p, "cost"),
		ReorderLevel: payloadDecimal(p, "reorder_level"),
	}
	if err := b.svc.AddMaterial(ctx, n); err != nil {
		b.log.Warn("add material failed", "err", err)
		_ = b.states.Reset(ctx, chatID)
		b.send(tgbotapi.NewMessage(chatID, "Материал не создан: "+humanError(err)))
		return
	}
	_ = b.states.Reset(ctx, chatID)
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Материал «%s» добавлен.", n.Name)))
}

func (b *Bot) onRestockCallback(ctx context.Context, chatID int64, msgID int, st *dialog.Item, data string) {
	if id, ok := idArg(data, "start:"); ok {
		m, found := b.svc.Material(id)
		if !found {
			b.show(chatID, &msgID, "Материал не найден", navKeyboard(false, true))
			return
		}
		_ = b.states.Set(ctx, chatID, dialog.StateRestockQty, dialog.Payload{"material_id": id})
		b.show(chatID, &msgID, fmt.Sprintf("Приход: %s\nВведите количество (%s):", m.Name, m.Unit), navKeyboard(true, true))
		return
	}
	if id, ok := idArg(data, "sup:"); ok {
		if st.State != dialog.StateRestockSupplier {
			return
		}
		st.Payload["supplier_id"] = id
		_ = b.states.Set(ctx, chatID, dialog.StateRestockConfirm, st.Payload)
		b.showRestockConfirm(ctx, chatID, msgID, st.Payload)
		return
	}
	if data == "confirm" && st.State == dialog.StateRestockConfirm {
		b.applyRestock(ctx, chatID, msgID, st.Payload)
	}
}

func (b *Bot) onRestockInput(ctx context.Context, chatID int64, st *dialog.Item, text string) {
	p := st.Payload
	switch st.State {
	case dialog.StateRestockQty:
		qty, err := parseDecimal(text)
		if err != nil || !qty.IsPositive() {
			b.prompt(chatID, "Количество должно быть больше нуля:")
			return
		}
		p["qty"] = qty.String()
		_ = b.states.Set(ctx, chatID, dialog.StateRestockCost, p)
		b.prompt(chatID, "Цена за единицу (или «-», если без цены):")

	case dialog.StateRestockCost:
		cost := decimal.Zero
		if text != "-" {
			v, err := parseDecimal(text)
			if err != nil || v.IsNegative() {
				b.prompt(chatID, "Нужно неотрицательное число или «-»:")
				return
			}
			cost = v
		}
		p["cost"] = cost.String()
		_ = b.states.Set(ctx, chatID, dialog.StateRestockSupplier, p)
		b.showRestockSupplierPick(ctx, chatID, p)
	}
}

func (b *Bot) showRestockSupplierPick(ctx context.Context, chatID int64, p dialog.Payload) {
	id, _ := dialog.GetInt64(p, "material_id")
	m, _ := b.svc.Material(id)

	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i, s := range b.svc.Suppliers(ctx) {
		if i == maxListButtons {
			break
		}
		label := s.Name
		if m.SupplierID != nil && *m.SupplierID == s.ID {
			label = "⭐ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("rs:sup:%d", s.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Без поставщика", "rs:sup:0"),
	))
	rows = append(rows, navKeyboard(true, true).InlineKeyboard[0])

	msg := tgbotapi.NewMessage(chatID, "Поставщик:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(msg)
}

func (b *Bot) restockFromPayload(p dialog.Payload) inventory.Restock {
	id, _ := dialog.GetInt64(p, "material_id")
	rs := inventory.Restock{
		MaterialID:  id,
		Quantity:    payloadDecimal(p, "qty"),
		Location:    inventory.DefaultLocation,
		Supplier:    catalog.Undecided(),
		CostPerUnit: payloadDecimal(p, "cost"),
	}
	if sid, ok := dialog.GetInt64(p, "supplier_id"); ok && sid > 0 {
		rs.Supplier = catalog.SupplierByID(sid)
	}
	return rs
}

func (b *Bot) showRestockConfirm(ctx context.Context, chatID int64, msgID int, p dialog.Payload) {
	rs := b.restockFromPayload(p)
	m, _ := b.svc.Material(rs.MaterialID)

	supplier := "без поставщика"
	if sup, ok := rs.Supplier.Resolve(b.svc.Suppliers(ctx)); ok {
		supplier = sup.Name
	}
	text := fmt.Sprintf("Приход:\n%s — %s %s по %s\nПоставщик: %s\nСклад: %s",
		m.Name, rs.Quantity.String(), m.Unit, money(rs.CostPerUnit), supplier, rs.Location)
	b.show(chatID, &msgID, text, confirmKeyboard("rs:confirm"))
}

func (b *Bot) applyRestock(ctx context.Context, chatID int64, msgID int, p dialog.Payload) {
	rs := b.restockFromPayload(p)
	if err := b.svc.Restock(ctx, rs); err != nil {
		b.log.Error("restock failed", "err", err, "material_id", rs.MaterialID)
		b.show(chatID, &msgID, "Приход не проведён: "+humanError(err), navKeyboard(true, true))
		return
	}
	_ = b.states.Reset(ctx, chatID)

	text := "✅ Приход проведён."
	if m, ok := b.svc.Material(rs.MaterialID); ok {
		text += fmt.Sprintf("\nОстаток %s: %s %s", m.Name, m.QuantityOnHand.String(), m.Unit)
	}
	b.editTextAndClear(chatID, msgID, text)
}

func (b *Bot) showLowStock(ctx context.Context, chatID int64, editMsgID *int) {
	_ = b.states.Set(ctx, chatID, dialog.StateLowList, dialog.Payload{})

	low := b.svc.LowStock()
	var sb strings.Builder
	if len(low) == 0 {
		sb.WriteString("Дефицита нет 👌")
	} else {
		sb.WriteString("⚠️ Ниже уровня дозаказа:\n")
		for _, m := range low {
			fmt.Fprintf(&sb, "%s %s — %s/%s %s — письмо: %s (заказ %s)\n",
				badge(m), m.Name, m.QuantityOnHand.String(), m.ReorderLevel.String(), m.Unit,
				notifyLabel(b.svc.StateOf(m)), b.svc.RecommendedOrder(m).String())
		}
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📨 Разослать письма", "low:scan"),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить", "low:list"),
		),
		navKeyboard(false, true).InlineKeyboard[0],
	)
	b.show(chatID, editMsgID, strings.TrimSpace(sb.String()), kb)
}

var outcomeLabels = map[lowstock.Outcome]string{
	lowstock.OutcomeSent:        "отправлено",
	lowstock.OutcomeAlready:     "уже писали",
	lowstock.OutcomeNoSKU:       "нет артикула",
	lowstock.OutcomeNoSupplier:  "поставщик не найден",
	lowstock.OutcomeNoEmail:     "у поставщика нет почты",
	lowstock.OutcomeSendFailed:  "ошибка отправки",
	lowstock.OutcomePersistFail: "отправлено, отметка не сохранилась",
}

func (b *Bot) runLowStockScan(ctx context.Context, chatID int64, editMsgID *int) {
	rep := b.svc.ScanLowStock(ctx)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Проверено: %d, в дефиците: %d, писем отправлено: %d\n",
		rep.Scanned, rep.Low, len(rep.Delivered()))
	for _, e := range rep.Entries {
		fmt.Fprintf(&sb, "— %s: %s", e.MaterialName, outcomeLabels[e.Outcome])
		if e.Supplier != nil {
			fmt.Fprintf(&sb, " (%s)", e.Supplier.Name)
		}
		sb.WriteString("\n")
	}
	b.show(chatID, editMsgID, strings.TrimSpace(sb.String()), navKeyboard(false, true))
}

func (b *Bot) showProducts(ctx context.Context, chatID int64) {
	list := b.svc.Products(ctx)
	if len(list) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Изделий пока нет (или сервер недоступен)."))
		return
	}
	var sb strings.Builder
	sb.WriteString("Изделия:\n")
	for _, v := range list {
		fmt.Fprintf(&sb, "• %s — себестоимость %s, цена %s, можно собрать: %d\n",
			v.ModelName, money(v.TotalCost), money(v.SellingPrice), v.CanMake)
	}
	b.send(tgbotapi.NewMessage(chatID, strings.TrimSpace(sb.String())))
}

func payloadDecimal(p dialog.Payload, key string) decimal.Decimal {
	s, _ := dialog.GetString(p, key)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// humanError короткое пояснение для оператора.
func humanError(err error) string {
	var ve *materials.ValidationError
	if errors.As(err, &ve) {
		return fmt.Sprintf("поле %s: %s", ve.Field, ve.Reason)
	}
	return err.Error()
}
