package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/Spok95/bom-console/internal/infra/backend"
)

var ErrRestockRejected = errors.New("backend rejected restock")

type Repo struct{ api *backend.Client }

func NewRepo(api *backend.Client) *Repo { return &Repo{api: api} }

func (r *Repo) Transactions(ctx context.Context) ([]Transaction, error) {
	var out []Transaction
	if err := r.api.GetJSON(ctx, "/transactions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (rs *Restock) Validate() error {
	if rs.MaterialID <= 0 {
		return &materials.ValidationError{Field: "product_id", Reason: "is required"}
	}
	if !rs.Quantity.IsPositive() {
		return &materials.ValidationError{Field: "quantity", Reason: "must be > 0"}
	}
	if rs.CostPerUnit.IsNegative() {
		return &materials.ValidationError{Field: "cost_per_unit", Reason: "must be a non-negative number"}
	}
	rs.Location = strings.TrimSpace(rs.Location)
	if rs.Location == "" {
		rs.Location = DefaultLocation
	}
	return nil
}

// Receive проводит приход. Локальный снимок не патчим: вызывающий перечитывает остатки.
func (r *Repo) Receive(ctx context.Context, rs Restock) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	payload := map[string]any{
		"type":          string(MoveIn),
		"product_id":    rs.MaterialID,
		"quantity":      rs.Quantity.InexactFloat64(),
		"location":      rs.Location,
		"supplier":      rs.Supplier,
		"cost_per_unit": rs.CostPerUnit.InexactFloat64(),
	}
	if id, ok := rs.Supplier.ID(); ok {
		payload["supplier_id"] = id
	}

	var res backend.Result
	if err := r.api.PostJSON(ctx, "/transactions", payload, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: %s", ErrRestockRejected, res.Error)
	}
	return nil
}
