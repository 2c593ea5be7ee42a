package classifier

import "strings"

// DefaultAttrSynonyms collapses attribute spellings seen across feeds.
// Keys are compared case-insensitively.
var DefaultAttrSynonyms = map[string]string{
	"ip":                      "Степень защиты, IP",
	"степень защиты":          "Степень защиты, IP",
	"степень защиты ip":       "Степень защиты, IP",
	"класс защиты ip":         "Степень защиты, IP",
	"degree of protection":    "Степень защиты, IP",
	"номинальный ток":         "Номинальный ток, А",
	"номинальный ток, a":      "Номинальный ток, А",
	"ток":                     "Номинальный ток, А",
	"rated current":           "Номинальный ток, А",
	"количество полюсов":      "Количество полюсов",
	"число полюсов":           "Количество полюсов",
	"полюса":                  "Количество полюсов",
	"poles":                   "Количество полюсов",
	"характеристика":          "Время-токовая характеристика",
	"кривая отключения":       "Время-токовая характеристика",
	"сечение":                 "Сечение жилы, мм²",
	"сечение жилы":            "Сечение жилы, мм²",
	"сечение, мм2":            "Сечение жилы, мм²",
	"cross-section":           "Сечение жилы, мм²",
	"количество жил":          "Количество жил",
	"число жил":               "Количество жил",
	"отключающая способность": "Отключающая способность, кА",
	"breaking capacity":       "Отключающая способность, кА",
}

// AttrNormalizer maps attribute names to their canonical spelling.
type AttrNormalizer struct {
	synonyms map[string]string
}

// NewAttrNormalizer builds a normalizer from the defaults extended by extra.
func NewAttrNormalizer(extra map[string]string) *AttrNormalizer {
	n := &AttrNormalizer{synonyms: make(map[string]string, len(DefaultAttrSynonyms)+len(extra))}
	for k, v := range DefaultAttrSynonyms {
		n.synonyms[foldKey(k)] = v
	}
	for k, v := range extra {
		n.synonyms[foldKey(k)] = v
	}
	return n
}

func (n *AttrNormalizer) Normalize(name string) string {
	name = collapseSpaces(name)
	if n == nil || name == "" {
		return name
	}
	if canonical, ok := n.synonyms[foldKey(name)]; ok {
		return canonical
	}
	return name
}

func foldKey(s string) string {
	return strings.ToLower(collapseSpaces(s))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
