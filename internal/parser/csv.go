package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

type csvField int

const (
	csvID csvField = iota
	csvSKU
	csvName
	csvBrand
	csvCategory
	csvType
	csvAmp
	csvSqmm
	csvPrice
	csvStock
	csvImage
	csvDescription
)

var csvAliases = map[string]csvField{
	"id":            csvID,
	"product_id":    csvID,
	"код":           csvID,
	"sku":           csvSKU,
	"article":       csvSKU,
	"vendor_code":   csvSKU,
	"vendorcode":    csvSKU,
	"артикул":       csvSKU,
	"name":          csvName,
	"title":         csvName,
	"наименование":  csvName,
	"название":      csvName,
	"brand":         csvBrand,
	"vendor":        csvBrand,
	"manufacturer":  csvBrand,
	"бренд":         csvBrand,
	"производитель": csvBrand,
	"category":      csvCategory,
	"категория":     csvCategory,
	"группа":        csvCategory,
	"type":          csvType,
	"тип":           csvType,
	"amp":           csvAmp,
	"amps":          csvAmp,
	"ток":           csvAmp,
	"sqmm":          csvSqmm,
	"сечение":       csvSqmm,
	"price":         csvPrice,
	"цена":          csvPrice,
	"stock":         csvStock,
	"qty":           csvStock,
	"quantity":      csvStock,
	"остаток":       csvStock,
	"количество":    csvStock,
	"image":         csvImage,
	"image_url":     csvImage,
	"picture":       csvImage,
	"фото":          csvImage,
	"description":   csvDescription,
	"описание":      csvDescription,
}

var errNoNameColumn = errors.New("csv header has no name column")

func decodeCSV(body []byte) ([]rawProduct, error) {
	body = bytes.TrimPrefix(body, utf8BOM)

	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = sniffDelimiter(body)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make(map[csvField]int)
	extra := make(map[int]string)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if field, ok := csvAliases[strings.ToLower(name)]; ok {
			if _, dup := columns[field]; !dup {
				columns[field] = i
			}
			continue
		}
		if name != "" {
			extra[i] = name
		}
	}
	if _, ok := columns[csvName]; !ok {
		return nil, errNoNameColumn
	}

	var products []rawProduct
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}

		get := func(f csvField) string {
			i, ok := columns[f]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		p := rawProduct{
			ID:          get(csvID),
			SKU:         get(csvSKU),
			Name:        get(csvName),
			Brand:       get(csvBrand),
			Category:    get(csvCategory),
			Type:        get(csvType),
			Amp:         parseInt(get(csvAmp)),
			Sqmm:        parseFloat(get(csvSqmm)),
			Price:       parseFloat(get(csvPrice)),
			Stock:       parseFloat(get(csvStock)),
			ImageURL:    get(csvImage),
			Description: htmlText(get(csvDescription)),
		}
		for i := 0; i < len(row); i++ {
			if name, ok := extra[i]; ok {
				p.Attrs = append(p.Attrs, attrPair{Name: name, Value: row[i]})
			}
		}
		products = append(products, p)
	}
	return products, nil
}

// sniffDelimiter picks ';' when the header line has more semicolons than
// commas, which is what spreadsheet exports in ru locales produce.
func sniffDelimiter(body []byte) rune {
	line := body
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		line = body[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	if bytes.Count(line, []byte("\t")) > bytes.Count(line, []byte(",")) {
		return '\t'
	}
	return ','
}
