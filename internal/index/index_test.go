package index

import (
	"testing"

	"electrobot/catalog/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "ВА47-29 1P 16А", Brand: "IEK", Category: "Автоматы", Stock: f(4),
			Attrs: map[string]string{"Количество полюсов": "1", "Характеристика": "C"}},
		{ID: "2", Name: "ВА47-29 3P 25А", Brand: "IEK", Category: "Автоматы", Stock: f(0),
			Attrs: map[string]string{"Количество полюсов": "3", "Характеристика": "C"}},
		{ID: "3", Name: "S203 C25", Brand: "ABB", Category: "Автоматы",
			Attrs: map[string]string{"Количество полюсов": "3"}},
		{ID: "4", Name: "ВВГнг 3х2,5", Category: "Кабель", Stock: f(100),
			Attrs: map[string]string{"Сечение жилы, мм²": "2.5"}},
	}
}

func TestBuildRanksCategories(t *testing.T) {
	ix := Build(testProducts())

	cats := ix.Categories()
	require.Len(t, cats, 2)
	assert.Equal(t, "Автоматы", cats[0].Name)
	assert.Equal(t, 3, cats[0].Count)
	assert.Equal(t, "автоматы", cats[0].Slug)
	assert.Equal(t, "Кабель", cats[1].Name)

	name, ok := ix.CategoryBySlug("кабель")
	require.True(t, ok)
	assert.Equal(t, "Кабель", name)

	slug, ok := ix.SlugOf("Автоматы")
	require.True(t, ok)
	assert.Equal(t, "автоматы", slug)
}

func TestBuildRanksSteps(t *testing.T) {
	ix := Build(testProducts())

	assert.Equal(t, []string{
		domain.AttrBrand,
		domain.AttrAvailability,
		"Количество полюсов",
		"Характеристика",
	}, ix.Steps("Автоматы"))

	// no brands in this category, so the brand step is not offered
	assert.Equal(t, []string{domain.AttrAvailability, "Сечение жилы, мм²"}, ix.Steps("Кабель"))
	assert.Empty(t, ix.Steps("Нет такой"))
}

func TestValues(t *testing.T) {
	ix := Build(testProducts())

	assert.Equal(t, []ValueCount{{Value: "3", Count: 2}, {Value: "1", Count: 1}},
		ix.Values("Автоматы", "Количество полюсов", 0))
	assert.Equal(t, []ValueCount{{Value: "IEK", Count: 2}},
		ix.Values("Автоматы", domain.AttrBrand, 1))
	assert.Equal(t, []ValueCount{
		{Value: domain.AvailabilityBackOrder, Count: 1},
		{Value: domain.AvailabilityInStock, Count: 1},
	}, ix.Values("Автоматы", domain.AttrAvailability, 0))
	assert.Equal(t, []ValueCount{{Value: "IEK", Count: 2}, {Value: "ABB", Count: 1}}, ix.Brands("Автоматы"))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "кабель-и-провод", Slug("Кабель и провод"))
	assert.Equal(t, "ip-20", Slug("  IP/20 "))
	assert.Equal(t, "c", Slug("***"))
	assert.LessOrEqual(t, len([]rune(Slug("Очень длинное название категории товаров"))), maxSlugRunes)
}

func TestSlugCollisions(t *testing.T) {
	ix := Build([]domain.Product{
		{ID: "1", Name: "a", Category: "Щиты"},
		{ID: "2", Name: "b", Category: "щиты!"},
	})
	cats := ix.Categories()
	require.Len(t, cats, 2)
	assert.NotEqual(t, cats[0].Slug, cats[1].Slug)
	assert.Equal(t, "щиты-2", cats[1].Slug)
}
