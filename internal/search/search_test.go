package search

import (
	"testing"

	"electrobot/catalog/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amp(v int) *int          { return &v }
func sqmm(v float64) *float64 { return &v }

func catalog() []domain.Product {
	return []domain.Product{
		{ID: "c1", Name: "Кабель ВВГнг 4х240", Type: "cable", Sqmm: sqmm(240), Category: "Кабель"},
		{ID: "b410", Name: "Выключатель ВА88-43 410А", Brand: "IEK", Type: "breaker", Amp: amp(410), Category: "Автоматы"},
		{ID: "b400", Name: "Выключатель ВА88-43 400А", Brand: "IEK", Type: "breaker", Amp: amp(400), Category: "Автоматы"},
		{ID: "b16", Name: "ВА47-29 1P 16А", Brand: "IEK", Type: "breaker", Amp: amp(16), Category: "Автоматы"},
		{ID: "s1", Name: "Щит автоматики ЩРН-12", Category: "Щиты"},
	}
}

func ids(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestParseIntent(t *testing.T) {
	e := NewEngine(Options{})

	tests := []struct {
		query string
		want  Intent
	}{
		{query: "автомат 400А", want: Intent{Type: "breaker", Amp: amp(400)}},
		{query: "400 amp", want: Intent{Type: "breaker", Amp: amp(400)}},
		{query: "кабель 2,5 мм2", want: Intent{Type: "cable", Sqmm: sqmm(2.5)}},
		{query: "4 мм²", want: Intent{Type: "cable", Sqmm: sqmm(4)}},
		{query: "кабель 16", want: Intent{Type: "cable", Sqmm: sqmm(16)}},
		{query: "контактор 25", want: Intent{Type: "contactor", Amp: amp(25)}},
		{query: "ва47-29 16а", want: Intent{Type: "breaker", Amp: amp(16)}},
		{query: "узо abb", want: Intent{Type: "rcd", Brand: "abb"}},
		{query: "щит", want: Intent{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ParseIntent(tt.query))
		})
	}
}

func TestSearchSmartRanksExactAboveNear(t *testing.T) {
	e := NewEngine(Options{})

	got := e.SearchSmart(catalog(), "автомат 400А", 10)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"b400", "b410", "b16"}, ids(got))
	for _, p := range got {
		assert.NotEqual(t, "cable", p.Type)
	}
}

func TestSearchSmartLimit(t *testing.T) {
	e := NewEngine(Options{})
	assert.Equal(t, []string{"b400"}, ids(e.SearchSmart(catalog(), "автомат 400А", 1)))
}

func TestSearchSmartBrandBoost(t *testing.T) {
	e := NewEngine(Options{})
	products := []domain.Product{
		{ID: "1", Name: "УЗО 2P 25А", Brand: "IEK", Type: "rcd", Amp: amp(25)},
		{ID: "2", Name: "УЗО F202 25А", Brand: "ABB", Type: "rcd", Amp: amp(25)},
	}
	assert.Equal(t, []string{"2", "1"}, ids(e.SearchSmart(products, "узо abb 25а", 10)))
}

func TestSearchSmartFallsBackToSubstring(t *testing.T) {
	e := NewEngine(Options{})

	// "автоматика" implies breaker type; nothing typed as breaker matches the
	// text, so the plain substring search takes over
	got := e.SearchSmart([]domain.Product{catalog()[0], catalog()[4]}, "автоматики", 10)
	assert.Equal(t, []string{"s1"}, ids(got))
}

func TestSearch(t *testing.T) {
	e := NewEngine(Options{})

	assert.Equal(t, []string{"b410", "b400", "b16"}, ids(e.Search(catalog(), "iek", 0)))
	assert.Equal(t, []string{"b410"}, ids(e.Search(catalog(), "  IEK ", 1)))
	assert.Empty(t, e.Search(catalog(), "", 10))
	assert.Empty(t, e.Search(catalog(), "нет такого", 10))
}

func TestScoreUsesConfiguredWeights(t *testing.T) {
	e := NewEngine(Options{
		Weights:      Weights{Type: 1, Exact: 10, Near: 5, Brand: 1, Text: 1},
		AmpTolerance: 20,
	})
	p := catalog()[1]
	intent := Intent{Type: "breaker", Amp: amp(400)}

	assert.Equal(t, 6, e.Score(&p, intent, ""))
	intent.Amp = amp(500)
	assert.Equal(t, 1, e.Score(&p, intent, ""))
	intent.Type = "cable"
	assert.Equal(t, 0, e.Score(&p, intent, ""))
}
