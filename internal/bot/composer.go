package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/bom-console/internal/console"
	"github.com/Spok95/bom-console/internal/dialog"
	"github.com/Spok95/bom-console/internal/domain/bom"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// draft черновик чата; после рестарта восстанавливается из payload.
func (b *Bot) draft(ctx context.Context, chatID int64, p dialog.Payload) *console.Draft {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := b.drafts[chatID]; ok {
		return d
	}
	var st console.DraftState
	var d *console.Draft
	if dialog.Decode(p, "draft", &st) {
		d = b.svc.RestoreDraft(ctx, st)
	} else {
		d = b.svc.NewDraft()
	}
	b.drafts[chatID] = d
	return d
}

func (b *Bot) dropDraft(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := b.drafts[chatID]; ok {
		d.Close()
		delete(b.drafts, chatID)
	}
}

func (b *Bot) closeDrafts() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, d := range b.drafts {
		d.Close()
		delete(b.drafts, id)
	}
}

func (b *Bot) saveDraft(ctx context.Context, chatID int64, state dialog.State, d *console.Draft, extra dialog.Payload) {
	p := dialog.Payload{"draft": d.State()}
	for k, v := range extra {
		p[k] = v
	}
	if err := b.states.Set(ctx, chatID, state, p); err != nil {
		b.log.Error("dialog state save failed", "err", err, "chat_id", chatID)
	}
}

func (b *Bot) startComposer(ctx context.Context, chatID int64) {
	b.dropDraft(chatID)
	d := b.draft(ctx, chatID, nil)
	b.saveDraft(ctx, chatID, dialog.StateBomName, d, nil)
	b.prompt(chatID, "Новое изделие. Введите название модели:")
}

func (b *Bot) composerText(d *console.Draft, note string) string {
	st := d.State()
	tot := d.Totals()

	var sb strings.Builder
	name := st.ModelName
	if name == "" {
		name = "без названия"
	}
	fmt.Fprintf(&sb, "🧩 Изделие: %s\n", name)

	lines := d.Breakdown()
	if len(lines) == 0 {
		sb.WriteString("Материалы: пока пусто\n")
	} else {
		sb.WriteString("Материалы:\n")
		for i, l := range lines {
			if !l.Resolved {
				fmt.Fprintf(&sb, "%d. #%d — %s (нет в каталоге)\n", i+1, l.MaterialID, l.Quantity.String())
				continue
			}
			fmt.Fprintf(&sb, "%d. %s — %s %s × %s = %s\n",
				i+1, l.Name, l.Quantity.String(), l.Unit, money(l.UnitCost), money(l.Cost))
		}
	}

	skills := "не выбраны"
	if len(st.Skills) > 0 {
		skills = strings.Join(st.Skills, ", ")
	}
	fmt.Fprintf(&sb, "Навыки: %s, %s ч\n", skills, st.EstimatedHours.String())
	for _, e := range d.Labor().Breakdown {
		fmt.Fprintf(&sb, "  · %s: %s/ч → %s", e.SkillName, money(e.AvgHourlyRate), money(e.SkillCost))
		if e.Note != "" {
			sb.WriteString(" (ставка по умолчанию)")
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Вес: %s кг, наценка %s%%\n\n", st.WeightKg.String(), st.MarginPercent.String())
	fmt.Fprintf(&sb, "Материалы: %s\nРабота: %s\nИтого: %s\nЦена продажи: %s\n",
		money(tot.MaterialsCost), money(tot.LaborCost), money(tot.TotalCost), money(d.SellingPrice()))
	fmt.Fprintf(&sb, "Можно собрать сейчас: %d шт", bom.CanMakeCount(st.Lines, b.svc.Snapshot()))

	if note != "" {
		sb.WriteString("\n\n⚠️ " + note)
	}
	return sb.String()
}

func composerKeyboard(d *console.Draft) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Материал", "bom:add"),
			tgbotapi.NewInlineKeyboardButtonData("🛠 Навыки", "bom:skills"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏱ Часы", "bom:hours"),
			tgbotapi.NewInlineKeyboardButtonData("⚖️ Вес", "bom:weight"),
			tgbotapi.NewInlineKeyboardButtonData("％ Наценка", "bom:margin"),
		),
	}
	if n := d.Len(); n > 0 {
		row := []tgbotapi.InlineKeyboardButton{}
		for i := 0; i < n && i < 8; i++ {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 %d", i+1), fmt.Sprintf("bom:rm:%d", i)))
		}
		rows = append(rows, row)
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💾 Сохранить", "bom:save")),
		navKeyboard(false, true).InlineKeyboard[0],
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) showComposer(ctx context.Context, chatID int64, editMsgID *int, d *console.Draft, note string) {
	d.Refresh(b.svc.Snapshot())
	b.saveDraft(ctx, chatID, dialog.StateBomSummary, d, nil)
	b.show(chatID, editMsgID, b.composerText(d, note), composerKeyboard(d))
}

func (b *Bot) showSkillPick(ctx context.Context, chatID int64, editMsgID *int, d *console.Draft) {
	chosen := map[string]bool{}
	for _, s := range d.Skills() {
		chosen[strings.ToLower(s)] = true
	}

	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, s := range b.svc.Skills(ctx) {
		if !s.Persisted() {
			continue
		}
		mark := "▫️"
		if chosen[strings.ToLower(s.Name)] {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark+" "+s.Name, fmt.Sprintf("bom:sk:%d", *s.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✏️ Новый навык", "bom:sknew"),
		tgbotapi.NewInlineKeyboardButtonData("Готово", "bom:skdone"),
	))
	rows = append(rows, navKeyboard(true, true).InlineKeyboard[0])

	b.saveDraft(ctx, chatID, dialog.StateBomSkills, d, nil)
	b.show(chatID, editMsgID, "Навыки для изделия (нажмите, чтобы выбрать или снять):", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) showMaterialPick(ctx context.Context, chatID int64, msgID int, d *console.Draft) {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i, m := range b.svc.Materials() {
		if i == maxListButtons {
			break
		}
		label := fmt.Sprintf("%s — %s за %s", m.Name, money(m.CostPerUnit), m.Unit)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("bom:pick:%d", m.ID)),
		))
	}
	rows = append(rows, navKeyboard(true, true).InlineKeyboard[0])
	b.saveDraft(ctx, chatID, dialog.StateBomPick, d, nil)
	b.show(chatID, &msgID, "Выберите материал:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) onComposerCallback(ctx context.Context, chatID int64, msgID int, st *dialog.Item, data string) {
	d := b.draft(ctx, chatID, st.Payload)

	switch data {
	case "add":
		b.showMaterialPick(ctx, chatID, msgID, d)
		return
	case "skills":
		b.showSkillPick(ctx, chatID, &msgID, d)
		return
	case "sknew":
		b.saveDraft(ctx, chatID, dialog.StateBomSkillNew, d, nil)
		b.show(chatID, &msgID, "Название нового навыка:", navKeyboard(true, true))
		return
	case "skdone":
		note := ""
		if _, err := d.Settle(ctx); err != nil {
			note = "Стоимость работы не рассчитана: " + err.Error()
		}
		b.showComposer(ctx, chatID, &msgID, d, note)
		return
	case "hours":
		b.saveDraft(ctx, chatID, dialog.StateBomHours, d, nil)
		b.show(chatID, &msgID, "Сколько часов работы на одно изделие?", navKeyboard(true, true))
		return
	case "weight":
		b.saveDraft(ctx, chatID, dialog.StateBomWeight, d, nil)
		b.show(chatID, &msgID, "Вес изделия, кг:", navKeyboard(true, true))
		return
	case "margin":
		b.saveDraft(ctx, chatID, dialog.StateBomMargin, d, nil)
		b.show(chatID, &msgID, "Наценка, %:", navKeyboard(true, true))
		return
	case "save":
		b.saveProduct(ctx, chatID, msgID, d)
		return
	}

	if id, ok := idArg(data, "pick:"); ok {
		m, found := b.svc.Material(id)
		if !found {
			b.showComposer(ctx, chatID, &msgID, d, "Материал не найден")
			return
		}
		b.saveDraft(ctx, chatID, dialog.StateBomQty, d, dialog.Payload{"material_id": id})
		b.show(chatID, &msgID, fmt.Sprintf("%s: сколько %s на одно изделие?", m.Name, m.Unit), navKeyboard(true, true))
		return
	}
	if i, ok := idArg(data, "rm:"); ok {
		note := ""
		if _, err := d.RemoveLine(int(i)); err != nil {
			note = err.Error()
		}
		b.showComposer(ctx, chatID, &msgID, d, note)
		return
	}
	if id, ok := idArg(data, "sk:"); ok {
		for _, s := range b.svc.Skills(ctx) {
			if s.ID != nil && *s.ID == id {
				d.ToggleSkill(s.Name)
				break
			}
		}
		b.showSkillPick(ctx, chatID, &msgID, d)
	}
}

func (b *Bot) onComposerInput(ctx context.Context, chatID int64, st *dialog.Item, text string) {
	d := b.draft(ctx, chatID, st.Payload)

	switch st.State {
	case dialog.StateBomName:
		if text == "" {
			b.prompt(chatID, "Название не может быть пустым:")
			return
		}
		d.SetName(text)
		b.showComposer(ctx, chatID, nil, d, "")
		return

	case dialog.StateBomSkillNew:
		if text == "" {
			b.prompt(chatID, "Название навыка не может быть пустым:")
			return
		}
		sk, err := b.svc.CreateSkill(ctx, text)
		if err != nil {
			b.log.Warn("create skill failed", "err", err)
			b.prompt(chatID, "Навык не создан: "+err.Error())
			return
		}
		d.ToggleSkill(sk.Name)
		b.showSkillPick(ctx, chatID, nil, d)
		return
	}

	v, err := parseDecimal(text)
	switch {
	case err != nil:
		b.prompt(chatID, "Нужно число, например 2 или 1,5:")
		return
	case st.State == dialog.StateBomMargin && v.IsNegative():
		b.prompt(chatID, "Наценка не может быть отрицательной:")
		return
	case st.State != dialog.StateBomMargin && !v.IsPositive():
		b.prompt(chatID, "Значение должно быть больше нуля:")
		return
	}

	note := ""
	switch st.State {
	case dialog.StateBomQty:
		id, _ := dialog.GetInt64(st.Payload, "material_id")
		if _, err := d.AddLine(id, v); err != nil {
			note = "Строка не добавлена: " + err.Error()
		}
	case dialog.StateBomHours:
		d.SetHours(v)
		if _, err := d.Settle(ctx); err != nil {
			note = "Стоимость работы не рассчитана: " + err.Error()
		}
	case dialog.StateBomWeight:
		d.SetWeight(v)
	case dialog.StateBomMargin:
		d.SetMargin(v)
	}
	b.showComposer(ctx, chatID, nil, d, note)
}

func (b *Bot) saveProduct(ctx context.Context, chatID int64, msgID int, d *console.Draft) {
	if _, err := d.Settle(ctx); err != nil {
		b.showComposer(ctx, chatID, &msgID, d, "Стоимость работы не рассчитана, изделие не сохранено: "+err.Error())
		return
	}
	in := d.Input()
	id, err := b.svc.SaveProduct(ctx, in)
	if err != nil {
		b.log.Warn("save product failed", "err", err)
		b.showComposer(ctx, chatID, &msgID, d, "Изделие не сохранено: "+humanError(err))
		return
	}
	tot := d.Totals()
	b.dropDraft(chatID)
	_ = b.states.Reset(ctx, chatID)
	b.editTextAndClear(chatID, msgID, fmt.Sprintf("✅ Изделие «%s» сохранено (id %d). Себестоимость %s.",
		in.ModelName, id, money(tot.TotalCost)))
}
