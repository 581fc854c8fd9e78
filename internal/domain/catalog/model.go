package catalog

import "time"

type Warehouse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type Supplier struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Company     string     `json:"company"`
	IsSpam      bool       `json:"is_spam"`
	BannedEmail bool       `json:"banned_email"`
	CreatedAt   *time.Time `json:"-"`
}

// Contactable есть ли куда писать поставщику.
func (s Supplier) Contactable() bool {
	return s.Email != "" && !s.BannedEmail
}

// SkillRef ссылка на навык; ID == nil: навык ещё не сохранён на бэкенде.
type SkillRef struct {
	ID   *int64 `json:"id"`
	Name string `json:"name"`
}

func (s SkillRef) Persisted() bool { return s.ID != nil }

// FindSupplier поиск поставщика по id в уже загруженном списке.
func FindSupplier(list []Supplier, id int64) (Supplier, bool) {
	for _, s := range list {
		if s.ID == id {
			return s, true
		}
	}
	return Supplier{}, false
}
