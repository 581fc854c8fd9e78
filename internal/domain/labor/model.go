package labor

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrCalculationFailed = errors.New("labor cost calculation failed")
	ErrInvalidHours      = errors.New("estimated hours must be > 0")
	ErrStaleResponse     = errors.New("labor estimate superseded by a newer request")
)

// BreakdownEntry разбивка по одному навыку. Проекция ответа бэкенда, своего состояния нет.
type BreakdownEntry struct {
	SkillName     string          `json:"skill"`
	AvgHourlyRate decimal.Decimal `json:"avg_hourly_rate"`
	Hours         decimal.Decimal `json:"hours"`
	SkillCost     decimal.Decimal `json:"skill_cost"`
	EmployeeCount int             `json:"employees_count"`
	Note          string          `json:"note,omitempty"`
}

type Estimate struct {
	LaborCost decimal.Decimal  `json:"labor_cost"`
	Breakdown []BreakdownEntry `json:"skill_breakdown"`
}

// Zero оценка для пустого набора навыков.
func Zero() Estimate {
	return Estimate{LaborCost: decimal.Zero, Breakdown: []BreakdownEntry{}}
}

type wireEntry struct {
	Skill          string          `json:"skill"`
	AvgHourlyRate  decimal.Decimal `json:"avg_hourly_rate"`
	EmployeesCount int             `json:"employees_count"`
	Note           *string         `json:"note"`
}

type wireResponse struct {
	LaborCost      *decimal.Decimal `json:"labor_cost"`
	SkillBreakdown []wireEntry      `json:"skill_breakdown"`
	Error          string           `json:"error"`
}

func (w wireResponse) toEstimate(hours decimal.Decimal) Estimate {
	e := Estimate{LaborCost: *w.LaborCost, Breakdown: make([]BreakdownEntry, 0, len(w.SkillBreakdown))}
	for _, s := range w.SkillBreakdown {
		be := BreakdownEntry{
			SkillName:     s.Skill,
			AvgHourlyRate: s.AvgHourlyRate,
			Hours:         hours,
			SkillCost:     s.AvgHourlyRate.Mul(hours),
			EmployeeCount: s.EmployeesCount,
		}
		if s.Note != nil {
			be.Note = *s.Note
		}
		e.Breakdown = append(e.Breakdown, be)
	}
	return e
}
