package parser

import (
	"encoding/xml"
	"errors"
	"strings"
)

type ymlCatalog struct {
	XMLName xml.Name `xml:"yml_catalog"`
	Shop    ymlShop  `xml:"shop"`
}

type ymlShop struct {
	Categories []ymlCategory `xml:"categories>category"`
	Offers     []ymlOffer    `xml:"offers>offer"`
}

type ymlCategory struct {
	ID   string `xml:"id,attr"`
	Name string `xml:",chardata"`
}

type ymlOffer struct {
	ID          string     `xml:"id,attr"`
	Available   string     `xml:"available,attr"`
	Name        string     `xml:"name"`
	TypePrefix  string     `xml:"typePrefix"`
	Model       string     `xml:"model"`
	Vendor      string     `xml:"vendor"`
	VendorCode  string     `xml:"vendorCode"`
	Price       string     `xml:"price"`
	CategoryID  string     `xml:"categoryId"`
	Pictures    []string   `xml:"picture"`
	Description string     `xml:"description"`
	Count       string     `xml:"count"`
	Params      []ymlParam `xml:"param"`
}

type ymlParam struct {
	Name  string `xml:"name,attr"`
	Unit  string `xml:"unit,attr"`
	Value string `xml:",chardata"`
}

var errNotYML = errors.New("document is not a yml_catalog")

func decodeYML(body []byte) ([]rawProduct, error) {
	var doc ymlCatalog
	if err := decodeXML(body, &doc); err != nil {
		return nil, err
	}
	if len(doc.Shop.Offers) == 0 && len(doc.Shop.Categories) == 0 {
		return nil, errNotYML
	}

	categories := make(map[string]string, len(doc.Shop.Categories))
	for _, c := range doc.Shop.Categories {
		categories[strings.TrimSpace(c.ID)] = strings.TrimSpace(c.Name)
	}

	products := make([]rawProduct, 0, len(doc.Shop.Offers))
	for _, o := range doc.Shop.Offers {
		name := o.Name
		if strings.TrimSpace(name) == "" {
			name = strings.Join([]string{o.TypePrefix, o.Vendor, o.Model}, " ")
		}

		categoryID := strings.TrimSpace(o.CategoryID)
		category, ok := categories[categoryID]
		if !ok {
			category = categoryID
		}

		r := rawProduct{
			ID:          o.ID,
			SKU:         o.VendorCode,
			Name:        name,
			Brand:       o.Vendor,
			Category:    category,
			Price:       parseFloat(o.Price),
			Stock:       ymlStock(o),
			Description: htmlText(o.Description),
		}
		if len(o.Pictures) > 0 {
			r.ImageURL = o.Pictures[0]
		}
		for _, param := range o.Params {
			value := strings.TrimSpace(param.Value)
			if unit := strings.TrimSpace(param.Unit); unit != "" && value != "" {
				value += " " + unit
			}
			r.Attrs = append(r.Attrs, attrPair{Name: param.Name, Value: value})
		}
		products = append(products, r)
	}
	return products, nil
}

// ymlStock prefers an explicit <count>; otherwise the available flag maps to
// 1 (in stock) or 0 (back-order).
func ymlStock(o ymlOffer) *float64 {
	if v := parseFloat(o.Count); v != nil {
		return v
	}
	var v float64
	switch strings.ToLower(strings.TrimSpace(o.Available)) {
	case "true", "1", "yes":
		v = 1
	case "false", "0", "no":
		v = 0
	default:
		return nil
	}
	return &v
}
