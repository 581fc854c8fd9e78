package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NotDecided подпись «поставщик не выбран», которую присылает форма материала.
const NotDecided = "Not decided yet"

type refKind uint8

const (
	refUndecided refKind = iota
	refByID
	refByName
)

// SupplierRef поставщик в транзакциях и формах приходит то строкой с именем,
// то числом-идентификатором. Разбираем один раз на границе.
type SupplierRef struct {
	kind refKind
	id   int64
	name string
}

func SupplierByID(id int64) SupplierRef { return SupplierRef{kind: refByID, id: id} }

func SupplierByName(name string) SupplierRef {
	name = strings.TrimSpace(name)
	if name == "" || name == NotDecided {
		return Undecided()
	}
	return SupplierRef{kind: refByName, name: name}
}

func Undecided() SupplierRef { return SupplierRef{} }

func (r SupplierRef) ID() (int64, bool) { return r.id, r.kind == refByID }
func (r SupplierRef) Name() (string, bool) { return r.name, r.kind == refByName }
func (r SupplierRef) IsUndecided() bool { return r.kind == refUndecided }
func (r SupplierRef) Equal(o SupplierRef) bool { return r == o }

func (r SupplierRef) String() string {
	switch r.kind {
	case refByID:
		return "#" + strconv.FormatInt(r.id, 10)
	case refByName:
		return r.name
	default:
		return NotDecided
	}
}

// Resolve находит поставщика в списке. Имена сравниваются без учёта регистра.
func (r SupplierRef) Resolve(list []Supplier) (Supplier, bool) {
	switch r.kind {
	case refByID:
		return FindSupplier(list, r.id)
	case refByName:
		for _, s := range list {
			if strings.EqualFold(s.Name, r.name) {
				return s, true
			}
		}
	}
	return Supplier{}, false
}

// MarshalJSON id уходит числом, имя строкой, «не выбран» уходит как null.
func (r SupplierRef) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case refByID:
		return []byte(strconv.FormatInt(r.id, 10)), nil
	case refByName:
		return json.Marshal(r.name)
	default:
		return []byte("null"), nil
	}
}

func (r *SupplierRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Undecided()
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		// "12" от формы тоже считаем идентификатором
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil && id > 0 {
			*r = SupplierByID(id)
			return nil
		}
		*r = SupplierByName(s)
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("supplier ref: %w", err)
	}
	if id <= 0 {
		*r = Undecided()
		return nil
	}
	*r = SupplierByID(id)
	return nil
}
