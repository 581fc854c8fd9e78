package console

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Spok95/bom-console/internal/domain/bom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftRecomputesOnLaborUpdate(t *testing.T) {
	e := newEnv(t)
	dr := e.svc.NewDraft()
	t.Cleanup(dr.Close)

	tot, err := dr.AddLine(1, d("2"))
	require.NoError(t, err)
	assert.True(t, tot.TotalCost.Equal(d("5")))

	dr.SetHours(d("2"))
	dr.ToggleSkill("Carpentry")
	dr.ToggleSkill("Sanding")
	dr.ToggleSkill("Sanding")

	require.Eventually(t, func() bool {
		return dr.Totals().LaborCost.Equal(d("50"))
	}, time.Second, 5*time.Millisecond)
	assert.True(t, dr.Totals().TotalCost.Equal(d("55")))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, e.be.LaborCalls())
}

func TestDraftEmptySkillsSettleToZero(t *testing.T) {
	e := newEnv(t)
	dr := e.svc.NewDraft()
	t.Cleanup(dr.Close)

	_, _ = dr.AddLine(2, d("10"))
	tot, err := dr.Settle(context.Background())
	require.NoError(t, err)
	assert.True(t, tot.LaborCost.IsZero())
	assert.True(t, tot.TotalCost.Equal(d("1")))
	assert.Equal(t, 0, e.be.LaborCalls())
}

func TestDraftStateRoundTrip(t *testing.T) {
	e := newEnv(t)
	dr := e.svc.NewDraft()
	t.Cleanup(dr.Close)

	dr.SetName("Bench")
	_, _ = dr.AddLine(1, d("3"))
	_, _ = dr.AddLine(2, d("8"))
	dr.ToggleSkill("Carpentry")
	dr.SetHours(d("4"))
	dr.SetWeight(d("7.5"))

	raw, err := json.Marshal(dr.State())
	require.NoError(t, err)

	var st DraftState
	require.NoError(t, json.Unmarshal(raw, &st))
	back := e.svc.RestoreDraft(context.Background(), st)
	t.Cleanup(back.Close)

	assert.Equal(t, 2, back.Len())
	assert.True(t, back.Totals().MaterialsCost.Equal(dr.Totals().MaterialsCost))
	assert.True(t, back.Totals().LaborCost.Equal(d("100")), back.Totals().LaborCost.String())

	tot, err := back.Settle(context.Background())
	require.NoError(t, err)
	assert.True(t, tot.LaborCost.Equal(d("100")))

	in := back.Input()
	assert.Equal(t, "Bench", in.ModelName)
	assert.Equal(t, []string{"Carpentry"}, in.Skills)
	assert.True(t, in.WeightKg.Equal(d("7.5")))
}

func TestRestoredDraftHasLaborBeforeSettle(t *testing.T) {
	e := newEnv(t)
	dr := e.svc.RestoreDraft(context.Background(), DraftState{
		Skills:         []string{"Carpentry"},
		EstimatedHours: d("4"),
	})
	t.Cleanup(dr.Close)

	tot, err := dr.AddLine(1, d("2"))
	require.NoError(t, err)
	assert.True(t, tot.LaborCost.Equal(d("100")), tot.LaborCost.String())
	assert.True(t, tot.TotalCost.Equal(d("105")), tot.TotalCost.String())
	assert.Equal(t, 1, e.be.LaborCalls())
}

func TestRestoredDraftLaborFailureKeepsZero(t *testing.T) {
	e := newEnv(t)
	e.be.FailLabor = true
	dr := e.svc.RestoreDraft(context.Background(), DraftState{
		Lines:  []bom.Line{{MaterialID: 1, Quantity: d("2")}},
		Skills: []string{"Carpentry"},
	})
	t.Cleanup(dr.Close)

	assert.True(t, dr.Totals().LaborCost.IsZero())
	assert.True(t, dr.Totals().TotalCost.Equal(d("5")))
}

func TestToggleSkillIgnoresCase(t *testing.T) {
	e := newEnv(t)
	dr := e.svc.NewDraft()
	t.Cleanup(dr.Close)

	dr.ToggleSkill("Carpentry")
	dr.ToggleSkill("carpentry")
	assert.Empty(t, dr.Skills())

	dr.ToggleSkill(" Sanding ")
	assert.Equal(t, []string{"Sanding"}, dr.Skills())
}
