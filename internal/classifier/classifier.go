package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

// Signal is the structured information extracted from free product text.
type Signal struct {
	Type string
	Amp  *int
	Sqmm *float64
}

// Classifier turns free text (name plus attribute text) into a Signal.
type Classifier interface {
	Classify(text string) Signal
}

// TypeRule maps a product type to the keywords that identify it.
type TypeRule struct {
	Type     string   `mapstructure:"type"`
	Keywords []string `mapstructure:"keywords"`
}

// DefaultTypeRules are checked in order; the first rule with a keyword found
// in the text wins.
var DefaultTypeRules = []TypeRule{
	{Type: "cable", Keywords: []string{"кабель", "провод", "cable", "wire", "ввг", "nym", "пвс"}},
	{Type: "breaker", Keywords: []string{"автомат", "выключатель автоматический", "breaker", "mcb", "mccb", "ва47", "ва88"}},
	{Type: "contactor", Keywords: []string{"контактор", "пускатель", "contactor", "кми"}},
	{Type: "rcd", Keywords: []string{"узо", "дифавтомат", "rcd", "rcbo"}},
}

var (
	AmpUnits  = []string{"ампер", "amps", "amp", "a", "а"}
	SqmmUnits = []string{"mm²", "mm2", "мм²", "мм2", "sqmm", `кв\.?\s?мм`}
)

var (
	ampRe  = regexp.MustCompile(`(?i)(?:^|[^\d.,])(\d{2,3})\s*(?:` + strings.Join(AmpUnits, "|") + `)(?:[^\pL]|$)`)
	sqmmRe = regexp.MustCompile(`(?i)(?:^|[^\d.,])(\d{1,3}(?:[.,]\d+)?)\s*(?:` + strings.Join(SqmmUnits, "|") + `)`)
)

type regexClassifier struct {
	rules []TypeRule
}

func NewRegexClassifier(rules []TypeRule) Classifier {
	if len(rules) == 0 {
		rules = DefaultTypeRules
	}
	normalized := make([]TypeRule, 0, len(rules))
	for _, r := range rules {
		kw := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kw = append(kw, k)
			}
		}
		normalized = append(normalized, TypeRule{Type: r.Type, Keywords: kw})
	}
	return &regexClassifier{rules: normalized}
}

func (c *regexClassifier) Classify(text string) Signal {
	lower := strings.ToLower(text)
	return Signal{
		Type: c.classifyType(lower),
		Amp:  ExtractAmp(lower),
		Sqmm: ExtractSqmm(lower),
	}
}

func (c *regexClassifier) classifyType(lower string) string {
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Type
			}
		}
	}
	return ""
}

// ExtractAmp returns the first amperage found in text.
func ExtractAmp(text string) *int {
	m := ampRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &v
}

// ExtractSqmm returns the first cross-section found in text.
func ExtractSqmm(text string) *float64 {
	m := sqmmRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return nil
	}
	return &v
}
