package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/bom-console/internal/domain/bom"
	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/Spok95/bom-console/internal/domain/inventory"
	"github.com/Spok95/bom-console/internal/domain/labor"
	"github.com/Spok95/bom-console/internal/domain/lowstock"
	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/Spok95/bom-console/internal/domain/products"
	"github.com/shopspring/decimal"
)

type Deps struct {
	Log       *slog.Logger
	Materials *materials.Repo
	Inventory *inventory.Repo
	Catalog   *catalog.Repo
	Products  *products.Repo
	Labor     *labor.Service
	Store     *inventory.Store
	Notifier  *lowstock.Notifier
	Debounce  time.Duration
}

// Service общая точка для бота и HTTP API.
type Service struct {
	log       *slog.Logger
	materials *materials.Repo
	inventory *inventory.Repo
	catalog   *catalog.Repo
	products  *products.Repo
	labor     *labor.Service
	store     *inventory.Store
	notifier  *lowstock.Notifier
	debounce  time.Duration
}

func New(d Deps) *Service {
	return &Service{
		log:       d.Log.With("component", "console"),
		materials: d.Materials,
		inventory: d.Inventory,
		catalog:   d.Catalog,
		products:  d.Products,
		labor:     d.Labor,
		store:     d.Store,
		notifier:  d.Notifier,
		debounce:  d.Debounce,
	}
}

func (s *Service) Snapshot() *inventory.Snapshot { return s.store.Current() }

// Materials текущий снимок, самые дефицитные сверху.
func (s *Service) Materials() []materials.Material { return s.store.Current().All() }

func (s *Service) Material(id int64) (materials.Material, bool) {
	return s.store.Current().FindByID(id)
}

func (s *Service) Refresh(ctx context.Context) *inventory.Snapshot { return s.store.Reload(ctx) }

func (s *Service) LowStock() []materials.Material { return s.store.Current().Low() }

func (s *Service) StateOf(m materials.Material) lowstock.State {
	return lowstock.StateOf(m, s.notifier.Set())
}

func (s *Service) RecommendedOrder(m materials.Material) decimal.Decimal {
	return s.notifier.RecommendedOrder(m)
}

// Skills, Suppliers, Warehouses: при сбое пустой список, ошибка только в лог.

func (s *Service) Skills(ctx context.Context) []catalog.SkillRef {
	list, err := s.catalog.ListSkills(ctx)
	if err != nil {
		s.log.Warn("skills load failed", "err", err)
		return nil
	}
	return list
}

func (s *Service) Suppliers(ctx context.Context) []catalog.Supplier {
	list, err := s.catalog.ListSuppliers(ctx)
	if err != nil {
		s.log.Warn("suppliers load failed", "err", err)
		return nil
	}
	return list
}

func (s *Service) Warehouses(ctx context.Context) []catalog.Warehouse {
	list, err := s.catalog.ListWarehouses(ctx)
	if err != nil {
		s.log.Warn("warehouses load failed", "err", err)
		return nil
	}
	return list
}

func (s *Service) CreateSkill(ctx context.Context, name string) (catalog.SkillRef, error) {
	return s.catalog.CreateSkill(ctx, name)
}

func (s *Service) AddMaterial(ctx context.Context, n materials.NewMaterial) error {
	if err := s.materials.Create(ctx, n); err != nil {
		return err
	}
	s.store.Reload(ctx)
	return nil
}

// Restock приход; после него материал снова может получить письмо, когда опять кончится.
// Поставщик, указанный именем, переводится в id, если он есть в справочнике.
func (s *Service) Restock(ctx context.Context, rs inventory.Restock) error {
	var suppliers []catalog.Supplier
	if _, byName := rs.Supplier.Name(); byName {
		suppliers = s.Suppliers(ctx)
	}
	if err := s.receive(ctx, rs, suppliers); err != nil {
		return err
	}
	s.store.Reload(ctx)
	return nil
}

// RestockBatch приходы пачкой (загрузка из Excel): справочник поставщиков
// читается один раз, остатки перечитываются один раз в конце. Ошибочные
// строки не мешают остальным; done сколько проведено.
func (s *Service) RestockBatch(ctx context.Context, items []inventory.Restock) (done int, err error) {
	var suppliers []catalog.Supplier
	for _, rs := range items {
		if _, byName := rs.Supplier.Name(); byName {
			suppliers = s.Suppliers(ctx)
			break
		}
	}

	var errs []error
	for _, rs := range items {
		if e := s.receive(ctx, rs, suppliers); e != nil {
			errs = append(errs, fmt.Errorf("material %d: %w", rs.MaterialID, e))
			continue
		}
		done++
	}
	if done > 0 {
		s.store.Reload(ctx)
	}
	return done, errors.Join(errs...)
}

func (s *Service) receive(ctx context.Context, rs inventory.Restock, suppliers []catalog.Supplier) error {
	if _, byName := rs.Supplier.Name(); byName {
		if sup, ok := rs.Supplier.Resolve(suppliers); ok {
			rs.Supplier = catalog.SupplierByID(sup.ID)
		}
	}
	if err := s.inventory.Receive(ctx, rs); err != nil {
		return err
	}
	s.notifier.Set().Clear(rs.MaterialID)
	return nil
}

// ResetNotified вручную сбросить флаг письма (например, поставщик не ответил).
func (s *Service) ResetNotified(ctx context.Context, materialID int64) error {
	if err := s.materials.ResetNotified(ctx, materialID); err != nil {
		return err
	}
	s.notifier.Set().Clear(materialID)
	s.store.Reload(ctx)
	return nil
}

// ScanLowStock перечитывает остатки и рассылает письма по дефициту.
func (s *Service) ScanLowStock(ctx context.Context) lowstock.Report {
	snap := s.store.Reload(ctx)
	rep := s.notifier.Scan(ctx, snap)
	s.log.Info("low-stock scan done", "scanned", rep.Scanned, "low", rep.Low, "delivered", len(rep.Delivered()))
	return rep
}

type QuoteRequest struct {
	Lines               []bom.Line       `json:"lines"`
	Skills              []string         `json:"skills"`
	EstimatedHours      decimal.Decimal  `json:"estimated_hours"`
	ProfitMarginPercent *decimal.Decimal `json:"profit_margin_percent,omitempty"`
}

type Quote struct {
	bom.Totals
	Lines         []bom.LineCost  `json:"lines"`
	Labor         labor.Estimate  `json:"labor"`
	LaborError    string          `json:"labor_error,omitempty"`
	CanMake       int64           `json:"can_make"`
	MarginPercent decimal.Decimal `json:"profit_margin_percent"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
}

// Quote разовый расчёт изделия по текущему снимку. Сбой расчёта работы не
// валит расчёт: работа считается нулём, причина в LaborError. Часы при
// выбранных навыках проверяются до запроса.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if len(labor.NormalizeSkills(req.Skills)) > 0 && !req.EstimatedHours.IsPositive() {
		return Quote{}, fmt.Errorf("estimated_hours: %w", labor.ErrInvalidHours)
	}
	snap := s.store.Current()
	agg := bom.NewAggregator(snap)
	for i, l := range req.Lines {
		if _, err := agg.AddLine(l.MaterialID, l.Quantity); err != nil {
			return Quote{}, fmt.Errorf("line %d: %w", i, err)
		}
	}

	q := Quote{Labor: labor.Zero(), MarginPercent: bom.DefaultMarginPercent}
	if req.ProfitMarginPercent != nil {
		q.MarginPercent = *req.ProfitMarginPercent
	}

	est, err := s.labor.Estimate(ctx, req.Skills, req.EstimatedHours)
	if err != nil {
		s.log.Warn("quote labor estimate failed", "err", err)
		q.LaborError = err.Error()
	} else {
		q.Labor = est
	}

	q.Totals = agg.RecomputeTotals(q.Labor.LaborCost)
	q.Lines = agg.Breakdown()
	q.CanMake = bom.CanMakeCount(agg.Lines(), snap)
	q.SellingPrice = bom.SellingPrice(q.TotalCost, q.MarginPercent)
	return q, nil
}

type ProductView struct {
	products.Product
	CanMake      int64           `json:"can_make"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// Products каталог изделий с тем, сколько можно собрать прямо сейчас.
func (s *Service) Products(ctx context.Context) []ProductView {
	list, err := s.products.List(ctx)
	if err != nil {
		s.log.Warn("products load failed", "err", err)
		return nil
	}
	snap := s.store.Current()
	out := make([]ProductView, 0, len(list))
	for _, p := range list {
		margin := p.ProfitMarginPercent
		if margin.IsZero() {
			margin = bom.DefaultMarginPercent
		}
		out = append(out, ProductView{
			Product:      p,
			CanMake:      bom.CanMakeCount(p.Lines, snap),
			SellingPrice: bom.SellingPrice(p.TotalCost, margin),
		})
	}
	return out
}

type ProductInput struct {
	ModelName           string           `json:"model_name"`
	Lines               []bom.Line       `json:"lines"`
	Skills              []string         `json:"skills"`
	EstimatedHours      decimal.Decimal  `json:"estimated_hours"`
	WeightKg            decimal.Decimal  `json:"weight"`
	ProfitMarginPercent *decimal.Decimal `json:"profit_margin_percent,omitempty"`
	PhotoURL            string           `json:"photo_url,omitempty"`
}

// SaveProduct считает стоимость заново по текущему снимку и сохраняет изделие.
// Здесь расчёт работы обязателен: без него изделие не сохраняем.
func (s *Service) SaveProduct(ctx context.Context, in ProductInput) (int64, error) {
	snap := s.store.Current()
	agg := bom.NewAggregator(snap)
	for i, l := range in.Lines {
		if _, err := agg.AddLine(l.MaterialID, l.Quantity); err != nil {
			return 0, fmt.Errorf("line %d: %w", i, err)
		}
	}

	skills := labor.NormalizeSkills(in.Skills)
	est := labor.Zero()
	if len(skills) > 0 && in.EstimatedHours.IsPositive() {
		var err error
		if est, err = s.labor.Estimate(ctx, skills, in.EstimatedHours); err != nil {
			return 0, err
		}
	}
	tot := agg.RecomputeTotals(est.LaborCost)

	p := products.Product{
		ModelName:           in.ModelName,
		Lines:               agg.Lines(),
		LineNames:           map[int64]string{},
		EstimatedHours:      in.EstimatedHours,
		MaterialsCost:       tot.MaterialsCost,
		LaborCost:           tot.LaborCost,
		TotalCost:           tot.TotalCost,
		WeightKg:            in.WeightKg,
		ProfitMarginPercent: bom.DefaultMarginPercent,
		PhotoURL:            in.PhotoURL,
	}
	if in.ProfitMarginPercent != nil {
		p.ProfitMarginPercent = *in.ProfitMarginPercent
	}
	for _, lc := range agg.Breakdown() {
		p.LineNames[lc.MaterialID] = lc.Name
	}
	for _, name := range skills {
		p.Skills = append(p.Skills, catalog.SkillRef{Name: name})
	}
	return s.products.Create(ctx, p)
}
