package index

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"electrobot/catalog/internal/domain"
)

type CategoryCount struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Index is derived from one catalog snapshot and never mutated after Build.
type Index struct {
	categories []CategoryCount
	bySlug     map[string]string
	brands     map[string]map[string]int
	// category -> attribute -> value -> occurrences
	attrs map[string]map[string]map[string]int
	steps map[string][]string
}

// Build ranks categories by size and, per category, the attributes a filter
// wizard should ask about: brand, availability, then the rest by how often
// they are filled in.
func Build(products []domain.Product) *Index {
	ix := &Index{
		bySlug: make(map[string]string),
		brands: make(map[string]map[string]int),
		attrs:  make(map[string]map[string]map[string]int),
		steps:  make(map[string][]string),
	}

	counts := make(map[string]int)
	for i := range products {
		p := &products[i]
		counts[p.Category]++

		if ix.attrs[p.Category] == nil {
			ix.attrs[p.Category] = make(map[string]map[string]int)
			ix.brands[p.Category] = make(map[string]int)
		}
		if p.Brand != "" {
			ix.brands[p.Category][p.Brand]++
			ix.add(p.Category, domain.AttrBrand, p.Brand)
		}
		if a := p.Availability(); a != "" {
			ix.add(p.Category, domain.AttrAvailability, a)
		}
		for name, value := range p.Attrs {
			if name == domain.AttrBrand || name == domain.AttrAvailability {
				continue
			}
			ix.add(p.Category, name, value)
		}
	}

	for name, count := range counts {
		ix.categories = append(ix.categories, CategoryCount{Name: name, Count: count})
	}
	sort.Slice(ix.categories, func(i, j int) bool {
		a, b := ix.categories[i], ix.categories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	for i := range ix.categories {
		slug := uniqueSlug(Slug(ix.categories[i].Name), ix.bySlug)
		ix.categories[i].Slug = slug
		ix.bySlug[slug] = ix.categories[i].Name
		ix.steps[ix.categories[i].Name] = rankSteps(ix.attrs[ix.categories[i].Name])
	}

	return ix
}

func (ix *Index) add(category, attr, value string) {
	values := ix.attrs[category][attr]
	if values == nil {
		values = make(map[string]int)
		ix.attrs[category][attr] = values
	}
	values[value]++
}

func rankSteps(attrs map[string]map[string]int) []string {
	type ranked struct {
		name  string
		total int
	}

	steps := make([]string, 0, len(attrs))
	for _, pinned := range []string{domain.AttrBrand, domain.AttrAvailability} {
		if _, ok := attrs[pinned]; ok {
			steps = append(steps, pinned)
		}
	}

	rest := make([]ranked, 0, len(attrs))
	for name, values := range attrs {
		if name == domain.AttrBrand || name == domain.AttrAvailability {
			continue
		}
		total := 0
		for _, n := range values {
			total += n
		}
		rest = append(rest, ranked{name: name, total: total})
	}
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].total != rest[j].total {
			return rest[i].total > rest[j].total
		}
		return rest[i].name < rest[j].name
	})
	for _, r := range rest {
		steps = append(steps, r.name)
	}
	return steps
}

// Categories returns categories ranked by product count.
func (ix *Index) Categories() []CategoryCount {
	out := make([]CategoryCount, len(ix.categories))
	copy(out, ix.categories)
	return out
}

func (ix *Index) CategoryBySlug(slug string) (string, bool) {
	name, ok := ix.bySlug[slug]
	return name, ok
}

// SlugOf returns the slug assigned to a category name.
func (ix *Index) SlugOf(category string) (string, bool) {
	for _, c := range ix.categories {
		if c.Name == category {
			return c.Slug, true
		}
	}
	return "", false
}

// Steps returns the ranked wizard steps for a category.
func (ix *Index) Steps(category string) []string {
	steps := ix.steps[category]
	out := make([]string, len(steps))
	copy(out, steps)
	return out
}

// Values returns the most frequent values of attr within category.
// limit <= 0 means all values.
func (ix *Index) Values(category, attr string, limit int) []ValueCount {
	return topValues(ix.attrs[category][attr], limit)
}

func (ix *Index) Brands(category string) []ValueCount {
	return topValues(ix.brands[category], 0)
}

func topValues(values map[string]int, limit int) []ValueCount {
	out := make([]ValueCount, 0, len(values))
	for v, n := range values {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

const maxSlugRunes = 24

// Slug lower-cases name and joins its letter/digit runs with '-'.
func Slug(name string) string {
	var b strings.Builder
	runes := 0
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if runes >= maxSlugRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
				runes++
			}
			pendingDash = false
			b.WriteRune(r)
			runes++
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return "c"
	}
	return b.String()
}

func uniqueSlug(slug string, taken map[string]string) string {
	if _, ok := taken[slug]; !ok {
		return slug
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", slug, i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
