package filter

import (
	"sort"
	"strings"

	"electrobot/catalog/internal/classifier"
	"electrobot/catalog/internal/domain"
)

type Evaluator struct {
	attrs *classifier.AttrNormalizer
}

func NewEvaluator(attrs *classifier.AttrNormalizer) *Evaluator {
	return &Evaluator{attrs: attrs}
}

// Filter returns the products of category that satisfy every selection,
// ordered in stock first, then by price (unknown last), then by brand.
// An empty category matches every product.
func (e *Evaluator) Filter(products []domain.Product, category string, selections *domain.Selections) []domain.Product {
	criteria := e.compile(selections)

	var out []domain.Product
	for i := range products {
		p := &products[i]
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if criteria.match(p) {
			out = append(out, *p)
		}
	}
	Sort(out)
	return out
}

// Match reports whether p satisfies every selection; category is not checked.
func (e *Evaluator) Match(p *domain.Product, selections *domain.Selections) bool {
	return e.compile(selections).match(p)
}

type criterion struct {
	attr  string
	value string
}

type criteria []criterion

func (e *Evaluator) compile(selections *domain.Selections) criteria {
	var out criteria
	selections.Each(func(attr, value string) {
		switch attr {
		case domain.AttrBrand, domain.AttrAvailability:
		default:
			attr = e.attrs.Normalize(attr)
		}
		out = append(out, criterion{attr: attr, value: strings.ToLower(strings.TrimSpace(value))})
	})
	return out
}

func (c criteria) match(p *domain.Product) bool {
	for _, cr := range c {
		switch cr.attr {
		case domain.AttrBrand:
			if !strings.Contains(strings.ToLower(p.Brand), cr.value) {
				return false
			}
		case domain.AttrAvailability:
			// absent stock matches neither state
			if a := p.Availability(); a == "" || a != cr.value {
				return false
			}
		default:
			got, ok := attrValue(p, cr.attr)
			if !ok || !strings.Contains(strings.ToLower(got), cr.value) {
				return false
			}
		}
	}
	return true
}

func attrValue(p *domain.Product, name string) (string, bool) {
	if v, ok := p.Attrs[name]; ok {
		return v, true
	}
	for k, v := range p.Attrs {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Sort orders products in place: in stock first, ascending price with unknown
// prices last, then brand.
func Sort(products []domain.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := &products[i], &products[j]
		if a.InStock() != b.InStock() {
			return a.InStock()
		}
		switch {
		case a.Price == nil && b.Price != nil:
			return false
		case a.Price != nil && b.Price == nil:
			return true
		case a.Price != nil && b.Price != nil && *a.Price != *b.Price:
			return *a.Price < *b.Price
		}
		return a.Brand < b.Brand
	})
}
