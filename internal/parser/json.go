package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type jsonProduct struct {
	ID          jsonString            `json:"id"`
	SKU         jsonString            `json:"sku"`
	Name        string                `json:"name"`
	Brand       string                `json:"brand"`
	Category    string                `json:"category"`
	Type        string                `json:"type"`
	Amp         jsonString            `json:"amp"`
	Sqmm        jsonString            `json:"sqmm"`
	Price       jsonString            `json:"price"`
	Stock       jsonString            `json:"stock"`
	ImageURL    string                `json:"image_url"`
	Image       string                `json:"image"`
	Description string                `json:"description"`
	Attrs       map[string]jsonString `json:"attrs"`
}

// jsonString accepts a JSON string, number or bool and keeps its text form.
type jsonString string

func (s *jsonString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = jsonString(v)
		return nil
	}
	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		return fmt.Errorf("expected scalar, got %s", data[:1])
	}
	*s = jsonString(data)
	return nil
}

func decodeJSON(body []byte) ([]rawProduct, error) {
	body = bytes.TrimSpace(bytes.TrimPrefix(body, utf8BOM))
	// json.Unmarshal accepts null into a slice
	if !bytes.HasPrefix(body, []byte("[")) {
		return nil, fmt.Errorf("expected a JSON array of products, got %q", firstBytes(body, 16))
	}

	var items []jsonProduct
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("expected a JSON array of products: %w", err)
	}

	products := make([]rawProduct, 0, len(items))
	for _, item := range items {
		r := rawProduct{
			ID:          string(item.ID),
			SKU:         string(item.SKU),
			Name:        item.Name,
			Brand:       item.Brand,
			Category:    item.Category,
			Type:        item.Type,
			Amp:         parseInt(string(item.Amp)),
			Sqmm:        parseFloat(string(item.Sqmm)),
			Price:       parseFloat(string(item.Price)),
			Stock:       parseFloat(string(item.Stock)),
			ImageURL:    firstNonEmpty(item.ImageURL, item.Image),
			Description: htmlText(item.Description),
		}

		names := make([]string, 0, len(item.Attrs))
		for name := range item.Attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r.Attrs = append(r.Attrs, attrPair{Name: name, Value: strings.TrimSpace(string(item.Attrs[name]))})
		}
		products = append(products, r)
	}
	return products, nil
}

func firstBytes(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
