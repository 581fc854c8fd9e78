package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnMaterials = "Материалы"
	btnLowStock  = "Дефицит"
	btnComposer  = "Новое изделие"
	btnProducts  = "Изделия"
	btnExport    = "Выгрузка"
	btnImport    = "Загрузить приход"
)

func navKeyboard(back bool, cancel bool) tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{}
	if back {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "nav:back"))
	}
	if cancel {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✖️ Отменить", "nav:cancel"))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// mainReplyKeyboard нижняя панель консоли
func mainReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButton(btnMaterials), tgbotapi.NewKeyboardButton(btnLowStock)},
			{tgbotapi.NewKeyboardButton(btnComposer), tgbotapi.NewKeyboardButton(btnProducts)},
			{tgbotapi.NewKeyboardButton(btnExport), tgbotapi.NewKeyboardButton(btnImport)},
		},
	}
}

func confirmKeyboard(data string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Провести", data),
		),
		navKeyboard(true, true).InlineKeyboard[0],
	)
}

func categoryKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Сырьё", "mat:cat:RawMaterial"),
			tgbotapi.NewInlineKeyboardButtonData("Комплектующие", "mat:cat:Component"),
			tgbotapi.NewInlineKeyboardButtonData("Инструмент", "mat:cat:Tool"),
		),
		navKeyboard(true, true).InlineKeyboard[0],
	)
}

func exportKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📄 Материалы", "exp:mat"),
			tgbotapi.NewInlineKeyboardButtonData("📄 Изделия", "exp:prod"),
		),
		navKeyboard(false, true).InlineKeyboard[0],
	)
}
