package dialog

import "encoding/json"

type State string

const (
	StateIdle State = "idle"

	// Материалы
	StateMatList    State = "mat_list"
	StateMatItem    State = "mat_item"
	StateMatAddName State = "mat_add_name"
	StateMatAddSKU  State = "mat_add_sku"
	StateMatAddCat  State = "mat_add_cat" // выбор категории кнопкой
	StateMatAddQty  State = "mat_add_qty"
	StateMatAddCost State = "mat_add_cost"
	StateMatAddROL  State = "mat_add_reorder"

	// Приход
	StateRestockQty      State = "restock_qty"
	StateRestockCost     State = "restock_cost"
	StateRestockSupplier State = "restock_supplier"
	StateRestockConfirm  State = "restock_confirm"
	StateRestockFile     State = "restock_file" // ожидание Excel с колонкой restock_qty

	// Конструктор изделия
	StateBomName     State = "bom_name"
	StateBomSummary  State = "bom_summary"
	StateBomPick     State = "bom_pick"
	StateBomQty      State = "bom_qty"
	StateBomSkills   State = "bom_skills"
	StateBomSkillNew State = "bom_skill_new"
	StateBomHours    State = "bom_hours"
	StateBomWeight   State = "bom_weight"
	StateBomMargin   State = "bom_margin"

	// Дефицит
	StateLowList State = "low_list"
)

type Payload map[string]any

type Item struct {
	ChatID  int64
	State   State
	Payload Payload
}

// GetString Helper для безопасного чтения строк из payload
func GetString(p Payload, key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt64 числа после JSON приходят как float64.
func GetInt64(p Payload, key string) (int64, bool) {
	switch v := p[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// Decode разворачивает вложенную структуру из payload (например, черновик изделия).
func Decode(p Payload, key string, out any) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}
