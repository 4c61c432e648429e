package unit

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	records []Record
	err     error
	calls   int
}

func (s *stubRepo) ListByArticle(ctx context.Context, articleID int64) ([]Record, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []Record
	for _, r := range s.records {
		if r.ArticleID == articleID {
			out = append(out, r)
		}
	}
	return out, nil
}

func level(n int) *int { return &n }

func coef(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func coefficients(units []Unit) map[int64]string {
	out := make(map[int64]string, len(units))
	for _, u := range units {
		out[u.ID] = u.Coefficient.String()
	}
	return out
}

func TestResolveFlat(t *testing.T) {
	records := []Record{
		{ID: 1, ArticleID: 7, Code: "A-PC", Label: "Piece", Coefficient: coef("1"), Level: level(1)},
		{ID: 2, ArticleID: 7, Code: "A-CT", Label: "Carton", Coefficient: coef("10"), Level: level(2)},
		{ID: 3, ArticleID: 7, Code: "A-PL", Label: "Palette", Coefficient: coef("200"), Level: level(3)},
	}

	units := ResolveFlat(records)

	require.Len(t, units, 3)
	assert.Equal(t, map[int64]string{1: "1", 2: "10", 3: "200"}, coefficients(units))
	assert.Equal(t, "Carton", units[1].Label)
	assert.Equal(t, "A-CT", units[1].Code)
}

func TestResolveFlat_NonPositiveCoefficientBecomesOne(t *testing.T) {
	records := []Record{
		{ID: 1, ArticleID: 7, Coefficient: coef("0")},
		{ID: 2, ArticleID: 7, Coefficient: coef("-4")},
		{ID: 3, ArticleID: 7},
	}

	units := ResolveFlat(records)

	assert.Equal(t, map[int64]string{1: "1", 2: "1", 3: "1"}, coefficients(units))
}

func TestResolveHierarchical_MultipliesAlongLevels(t *testing.T) {
	// Relative coefficients: a carton holds 10 pieces, a pallet holds 20 cartons.
	records := []Record{
		{ID: 3, ArticleID: 7, Label: "Palette", Coefficient: coef("20"), Level: level(3)},
		{ID: 1, ArticleID: 7, Label: "Piece", Coefficient: coef("1"), Level: level(1)},
		{ID: 2, ArticleID: 7, Label: "Carton", Coefficient: coef("10"), Level: level(2)},
	}

	units := ResolveHierarchical(records)

	require.Len(t, units, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{units[0].ID, units[1].ID, units[2].ID})
	assert.Equal(t, map[int64]string{1: "1", 2: "10", 3: "200"}, coefficients(units))
}

func TestResolveHierarchical_MissingLevelsSortLast(t *testing.T) {
	records := []Record{
		{ID: 9, ArticleID: 7, Coefficient: coef("2")},
		{ID: 4, ArticleID: 7, Coefficient: coef("3"), Level: level(1)},
	}

	units := ResolveHierarchical(records)

	require.Len(t, units, 2)
	assert.Equal(t, int64(4), units[0].ID)
	assert.Equal(t, map[int64]string{4: "3", 9: "6"}, coefficients(units))
}

func TestResolveHierarchical_NonPositiveCoercedBeforeLog(t *testing.T) {
	records := []Record{
		{ID: 1, ArticleID: 7, Coefficient: coef("0"), Level: level(1)},
		{ID: 2, ArticleID: 7, Coefficient: coef("12"), Level: level(2)},
	}

	units := ResolveHierarchical(records)

	assert.Equal(t, map[int64]string{1: "1", 2: "12"}, coefficients(units))
}

func TestResolveHierarchical_DeepChainStaysFinite(t *testing.T) {
	var records []Record
	for i := 1; i <= 40; i++ {
		records = append(records, Record{ID: int64(i), ArticleID: 7, Coefficient: coef("10"), Level: level(i)})
	}

	units := ResolveHierarchical(records)

	last := units[len(units)-1].Coefficient
	assert.True(t, last.IsPositive())
	assert.True(t, last.GreaterThan(decimal.New(1, 39)))
}

func TestResolveHierarchical_BeyondFloatRangeUsesExactProduct(t *testing.T) {
	var records []Record
	for i := 1; i <= 320; i++ {
		records = append(records, Record{ID: int64(i), ArticleID: 7, Coefficient: coef("10"), Level: level(i)})
	}

	units := ResolveHierarchical(records)
	require.Len(t, units, 320)

	at300 := units[299].Coefficient
	at320 := units[319].Coefficient
	assert.InDelta(t, 1.0, at300.Div(decimal.New(1, 300)).InexactFloat64(), 1e-9)
	assert.True(t, at320.Equal(decimal.New(1, 320)), at320.String())
	for i := 1; i < len(units); i++ {
		assert.True(t, units[i].Coefficient.GreaterThan(units[i-1].Coefficient), "level %d", i+1)
	}
}

func TestStrategiesDisagreeOnDeepHierarchies(t *testing.T) {
	records := []Record{
		{ID: 1, ArticleID: 7, Coefficient: coef("1"), Level: level(1)},
		{ID: 2, ArticleID: 7, Coefficient: coef("10"), Level: level(2)},
		{ID: 3, ArticleID: 7, Coefficient: coef("20"), Level: level(3)},
	}

	flat := coefficients(ResolveFlat(records))
	hier := coefficients(ResolveHierarchical(records))

	assert.Equal(t, flat[2], hier[2])
	assert.NotEqual(t, flat[3], hier[3])
}

func TestNewResolver(t *testing.T) {
	repo := &stubRepo{records: []Record{{ID: 1, ArticleID: 7, Coefficient: coef("6")}}}

	flat, err := NewResolver(StrategyFlat, repo)
	require.NoError(t, err)
	assert.IsType(t, &FlatResolver{}, flat)

	hier, err := NewResolver(StrategyHierarchical, repo)
	require.NoError(t, err)
	assert.IsType(t, &HierarchicalResolver{}, hier)

	_, err = NewResolver(Strategy("tree"), repo)
	assert.Error(t, err)
}

func TestResolver_EmptyArticle(t *testing.T) {
	repo := &stubRepo{}

	units, err := NewFlatResolver(repo).Resolve(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, units)

	units, err = NewHierarchicalResolver(repo).Resolve(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestResolver_PropagatesRepositoryError(t *testing.T) {
	boom := errors.New("connection refused")
	repo := &stubRepo{err: boom}

	_, err := NewFlatResolver(repo).Resolve(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy(" Hierarchical ")
	require.NoError(t, err)
	assert.Equal(t, StrategyHierarchical, s)

	_, err = ParseStrategy("")
	assert.Error(t, err)
}

func TestUnitConversion(t *testing.T) {
	piece := Unit{ID: 1, Coefficient: decimal.NewFromInt(1)}
	dozen := Unit{ID: 2, Coefficient: decimal.NewFromInt(12)}

	assert.Equal(t, "2", piece.ConvertTo(decimal.NewFromInt(24), dozen).String())
	assert.Equal(t, "36", dozen.ConvertTo(decimal.NewFromInt(3), piece).String())
	assert.Equal(t, "12", CoefficientOf([]Unit{piece, dozen}, 2).String())
	assert.Equal(t, "1", CoefficientOf([]Unit{piece, dozen}, 99).String())
}
