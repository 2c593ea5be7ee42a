package search

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"electrobot/catalog/internal/classifier"
	"electrobot/catalog/internal/domain"
)

// Weights are the points awarded per matched signal.
type Weights struct {
	Type  int `mapstructure:"type"`
	Exact int `mapstructure:"exact"`
	Near  int `mapstructure:"near"`
	Brand int `mapstructure:"brand"`
	Text  int `mapstructure:"text"`
}

type Options struct {
	Weights       Weights
	AmpTolerance  float64
	SqmmTolerance float64
	Brands        []string
	TypeRules     []classifier.TypeRule
}

var DefaultWeights = Weights{Type: 2, Exact: 3, Near: 2, Brand: 2, Text: 1}

var DefaultBrands = []string{
	"abb", "schneider", "legrand", "iek", "ekf", "dekraft", "кэаз", "hager", "siemens", "tdm", "systeme electric",
}

// Intent is what a free-text query asks for.
type Intent struct {
	Type  string
	Amp   *int
	Sqmm  *float64
	Brand string
}

func (i Intent) Empty() bool {
	return i.Type == "" && i.Amp == nil && i.Sqmm == nil && i.Brand == ""
}

type Engine struct {
	opts     Options
	keywords map[string]string // keyword -> type
	intentRe *regexp.Regexp
}

func NewEngine(opts Options) *Engine {
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights
	}
	if opts.AmpTolerance <= 0 {
		opts.AmpTolerance = 10
	}
	if opts.SqmmTolerance <= 0 {
		opts.SqmmTolerance = 5
	}
	if len(opts.Brands) == 0 {
		opts.Brands = DefaultBrands
	}
	if len(opts.TypeRules) == 0 {
		opts.TypeRules = classifier.DefaultTypeRules
	}
	brands := make([]string, 0, len(opts.Brands))
	for _, b := range opts.Brands {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			brands = append(brands, b)
		}
	}
	opts.Brands = brands

	keywords := make(map[string]string)
	var alternatives []string
	for _, rule := range opts.TypeRules {
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, ok := keywords[kw]; !ok {
				keywords[kw] = rule.Type
				alternatives = append(alternatives, regexp.QuoteMeta(kw))
			}
		}
	}
	// longest keyword first so "выключатель автоматический" beats "автомат"
	sort.SliceStable(alternatives, func(i, j int) bool {
		return len(alternatives[i]) > len(alternatives[j])
	})

	units := append(append([]string{}, classifier.SqmmUnits...), classifier.AmpUnits...)
	pattern := `(?:(` + strings.Join(alternatives, "|") + `)\pL*[^\d]*?)?` +
		`(\d+(?:[.,]\d+)?)` +
		`(?:\s*(` + strings.Join(units, "|") + `)(?:[^\pL]|$))?`

	return &Engine{
		opts:     opts,
		keywords: keywords,
		intentRe: regexp.MustCompile(pattern),
	}
}

// ParseIntent extracts type, amperage, cross-section and brand from a query.
func (e *Engine) ParseIntent(query string) Intent {
	q := strings.ToLower(query)
	var intent Intent

	var keyword, number, unit string
	for _, m := range e.intentRe.FindAllStringSubmatch(q, -1) {
		if keyword == "" && m[1] != "" {
			keyword = m[1]
		}
		if number == "" || (unit == "" && m[3] != "") {
			number, unit = m[2], m[3]
		}
	}
	if keyword == "" {
		keyword = e.findKeyword(q)
	}
	if keyword != "" {
		intent.Type = e.keywords[keyword]
	}

	if number != "" {
		value, err := strconv.ParseFloat(strings.Replace(number, ",", ".", 1), 64)
		if err == nil {
			switch {
			case unit != "" && isSqmmUnit(unit):
				intent.Sqmm = &value
				if intent.Type == "" {
					intent.Type = "cable"
				}
			case unit != "":
				amp := int(math.Round(value))
				intent.Amp = &amp
				if intent.Type == "" {
					intent.Type = "breaker"
				}
			case intent.Type == "cable":
				intent.Sqmm = &value
			case intent.Type != "":
				amp := int(math.Round(value))
				intent.Amp = &amp
			}
		}
	}

	for _, b := range e.opts.Brands {
		if strings.Contains(q, b) {
			intent.Brand = b
			break
		}
	}
	return intent
}

func (e *Engine) findKeyword(q string) string {
	best := ""
	for kw := range e.keywords {
		if strings.Contains(q, kw) && len(kw) > len(best) {
			best = kw
		}
	}
	return best
}

func isSqmmUnit(unit string) bool {
	return strings.Contains(unit, "мм") || strings.Contains(unit, "mm")
}

// Search is a case-insensitive substring match over name, SKU and brand, in
// catalog order.
func (e *Engine) Search(products []domain.Product, query string, limit int) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []domain.Product
	for i := range products {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.Contains(products[i].SearchText(), q) {
			out = append(out, products[i])
		}
	}
	return out
}

type scored struct {
	product domain.Product
	score   int
}

// SearchSmart ranks products by how well they match the query intent. When
// nothing scores, it falls back to Search.
func (e *Engine) SearchSmart(products []domain.Product, query string, limit int) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	intent := e.ParseIntent(q)

	var results []scored
	for i := range products {
		if score := e.Score(&products[i], intent, q); score > 0 {
			results = append(results, scored{product: products[i], score: score})
		}
	}
	if len(results) == 0 {
		return e.Search(products, query, limit)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]domain.Product, len(results))
	for i, r := range results {
		out[i] = r.product
	}
	return out
}

// Score returns the weighted match of p against intent; 0 means excluded.
func (e *Engine) Score(p *domain.Product, intent Intent, lowerQuery string) int {
	w := e.opts.Weights
	score := 0

	if intent.Type != "" {
		if p.Type != intent.Type {
			return 0
		}
		score += w.Type
	}
	if intent.Amp != nil && p.Amp != nil {
		diff := math.Abs(float64(*p.Amp - *intent.Amp))
		switch {
		case diff == 0:
			score += w.Exact
		case diff <= e.opts.AmpTolerance:
			score += w.Near
		}
	}
	if intent.Sqmm != nil && p.Sqmm != nil {
		diff := math.Abs(*p.Sqmm - *intent.Sqmm)
		switch {
		case diff < 1e-9:
			score += w.Exact
		case diff <= e.opts.SqmmTolerance:
			score += w.Near
		}
	}
	if intent.Brand != "" && strings.Contains(strings.ToLower(p.Brand), intent.Brand) {
		score += w.Brand
	}
	if lowerQuery != "" && strings.Contains(p.SearchText()+" "+p.Type, lowerQuery) {
		score += w.Text
	}
	return score
}
