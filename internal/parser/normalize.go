package parser

import (
	"math"
	"strconv"
	"strings"

	"electrobot/catalog/internal/domain"
)

// rawProduct is a record as read from a feed, before defaults are applied.
type rawProduct struct {
	ID          string
	SKU         string
	Name        string
	Brand       string
	Category    string
	Type        string
	Amp         *int
	Sqmm        *float64
	Price       *float64
	Stock       *float64
	ImageURL    string
	Description string
	Attrs       []attrPair
}

type attrPair struct {
	Name  string
	Value string
}

func (p *Parser) normalize(raw []rawProduct) []domain.Product {
	products := make([]domain.Product, 0, len(raw))
	for _, r := range raw {
		name := collapse(r.Name)
		if name == "" {
			continue
		}

		product := domain.Product{
			ID:          firstNonEmpty(strings.TrimSpace(r.ID), strings.TrimSpace(r.SKU), name),
			SKU:         strings.TrimSpace(r.SKU),
			Name:        name,
			Brand:       collapse(r.Brand),
			Category:    firstNonEmpty(collapse(r.Category), p.uncategorized),
			Type:        strings.ToLower(strings.TrimSpace(r.Type)),
			Amp:         r.Amp,
			Sqmm:        r.Sqmm,
			Price:       r.Price,
			Stock:       r.Stock,
			ImageURL:    strings.TrimSpace(r.ImageURL),
			Description: r.Description,
			Attrs:       make(map[string]string, len(r.Attrs)),
		}

		var text strings.Builder
		text.WriteString(name)
		for _, a := range r.Attrs {
			key := p.attrs.Normalize(a.Name)
			value := collapse(a.Value)
			if key == "" || value == "" {
				continue
			}
			if _, dup := product.Attrs[key]; !dup {
				product.Attrs[key] = value
			}
			text.WriteString(" ")
			text.WriteString(key)
			text.WriteString(" ")
			text.WriteString(value)
		}

		if product.Type == "" || product.Amp == nil || product.Sqmm == nil {
			signal := p.classifier.Classify(text.String())
			if product.Type == "" {
				product.Type = signal.Type
			}
			if product.Amp == nil {
				product.Amp = signal.Amp
			}
			if product.Sqmm == nil {
				product.Sqmm = signal.Sqmm
			}
		}

		products = append(products, product)
	}
	return products
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseFloat accepts "1 234,50", "1234.5" and similar; anything else is nil.
func parseFloat(s string) *float64 {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	f := parseFloat(s)
	if f == nil {
		return nil
	}
	v := int(math.Round(*f))
	return &v
}
