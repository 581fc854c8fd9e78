package lowstock

import (
	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/Spok95/bom-console/internal/domain/inventory"
	"github.com/Spok95/bom-console/internal/domain/materials"
)

// ResolveSupplier поставщик для письма: назначенный материалу напрямую, иначе
// самый частый по приходам этого материала (при равенстве меньший ID).
func ResolveSupplier(m materials.Material, suppliers []catalog.Supplier, txs []inventory.Transaction) (catalog.Supplier, bool) {
	if m.SupplierID != nil {
		if s, ok := catalog.FindSupplier(suppliers, *m.SupplierID); ok {
			return s, true
		}
	}

	freq := map[int64]int{}
	for _, t := range txs {
		if t.Type != inventory.MoveIn || t.MaterialID != m.ID {
			continue
		}
		s, ok := t.Supplier.Resolve(suppliers)
		if !ok {
			continue
		}
		freq[s.ID]++
	}

	var bestID int64
	best := 0
	for id, n := range freq {
		if n > best || (n == best && id < bestID) {
			best, bestID = n, id
		}
	}
	if best == 0 {
		return catalog.Supplier{}, false
	}
	return catalog.FindSupplier(suppliers, bestID)
}
