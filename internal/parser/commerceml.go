package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

type cmlDocument struct {
	XMLName    xml.Name       `xml:"КоммерческаяИнформация"`
	Classifier *cmlClassifier `xml:"Классификатор"`
	Catalog    *cmlCatalog    `xml:"Каталог"`
	Offers     *cmlOffers     `xml:"ПакетПредложений"`
}

type cmlClassifier struct {
	Groups     []cmlGroup    `xml:"Группы>Группа"`
	Properties []cmlProperty `xml:"Свойства>Свойство"`
}

type cmlGroup struct {
	ID       string     `xml:"Ид"`
	Name     string     `xml:"Наименование"`
	Children []cmlGroup `xml:"Группы>Группа"`
}

type cmlProperty struct {
	ID     string        `xml:"Ид"`
	Name   string        `xml:"Наименование"`
	Values []cmlDictItem `xml:"ВариантыЗначений>Справочник"`
}

type cmlDictItem struct {
	ID    string `xml:"ИдЗначения"`
	Value string `xml:"Значение"`
}

type cmlCatalog struct {
	// Some exports embed the classifier inside the catalog.
	Classifier *cmlClassifier `xml:"Классификатор"`
	Products   []cmlProduct   `xml:"Товары>Товар"`
}

type cmlProduct struct {
	ID           string         `xml:"Ид"`
	SKU          string         `xml:"Артикул"`
	Name         string         `xml:"Наименование"`
	Description  string         `xml:"Описание"`
	Manufacturer string         `xml:"Изготовитель>Наименование"`
	Images       []string       `xml:"Картинка"`
	Groups       []string       `xml:"Группы>Ид"`
	Properties   []cmlPropValue `xml:"ЗначенияСвойств>ЗначенияСвойства"`
	Requisites   []cmlRequisite `xml:"ЗначенияРеквизитов>ЗначениеРеквизита"`
	Features     []cmlRequisite `xml:"ХарактеристикиТовара>ХарактеристикаТовара"`
}

type cmlPropValue struct {
	ID    string `xml:"Ид"`
	Value string `xml:"Значение"`
}

type cmlRequisite struct {
	Name  string `xml:"Наименование"`
	Value string `xml:"Значение"`
}

type cmlOffers struct {
	Offers []cmlOffer `xml:"Предложения>Предложение"`
}

type cmlOffer struct {
	ID       string     `xml:"Ид"`
	Name     string     `xml:"Наименование"`
	Prices   []cmlPrice `xml:"Цены>Цена"`
	Quantity string     `xml:"Количество"`
	Stores   []cmlStock `xml:"Склад"`
}

type cmlPrice struct {
	PerUnit string `xml:"ЦенаЗаЕдиницу"`
}

type cmlStock struct {
	Quantity string `xml:"КоличествоНаСкладе,attr"`
}

var (
	errNoCommerceData = errors.New("no catalog or offers section found")
	errEmptyArchive   = errors.New("archive contains no xml members")
)

// brand requisites used when Изготовитель is absent
var cmlBrandRequisites = map[string]bool{
	"производитель":  true,
	"бренд":          true,
	"торговая марка": true,
}

// cmlMerge accumulates catalog and offer sections across documents, so a ZIP
// with import.xml and offers.xml joins the same way as a single combined file.
type cmlMerge struct {
	groups     map[string]string
	properties map[string]cmlProperty
	order      []string
	products   map[string]cmlProduct
	offers     map[string]cmlOffer
	documents  int
}

func newCMLMerge() *cmlMerge {
	return &cmlMerge{
		groups:     make(map[string]string),
		properties: make(map[string]cmlProperty),
		products:   make(map[string]cmlProduct),
		offers:     make(map[string]cmlOffer),
	}
}

func decodeCommerceML(body []byte) ([]rawProduct, error) {
	merge := newCMLMerge()

	if bytes.HasPrefix(body, zipMagic) {
		if err := merge.addArchive(body); err != nil {
			return nil, err
		}
	} else {
		if err := merge.addDocument(body); err != nil {
			return nil, err
		}
	}

	if len(merge.products) == 0 && len(merge.offers) == 0 {
		return nil, errNoCommerceData
	}
	return merge.join(), nil
}

func (m *cmlMerge) addArchive(body []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		if err := m.addDocument(data); err != nil {
			return fmt.Errorf("failed to decode %s: %w", f.Name, err)
		}
	}

	if m.documents == 0 {
		return errEmptyArchive
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (m *cmlMerge) addDocument(body []byte) error {
	var doc cmlDocument
	if err := decodeXML(body, &doc); err != nil {
		return err
	}
	m.documents++

	m.addClassifier(doc.Classifier)
	if doc.Catalog != nil {
		m.addClassifier(doc.Catalog.Classifier)
		for _, p := range doc.Catalog.Products {
			id := strings.TrimSpace(p.ID)
			if id == "" {
				continue
			}
			if _, seen := m.products[id]; !seen {
				m.order = append(m.order, id)
			}
			m.products[id] = p
		}
	}
	if doc.Offers != nil {
		for _, o := range doc.Offers.Offers {
			id := baseOfferID(o.ID)
			if id == "" {
				continue
			}
			if prev, ok := m.offers[id]; ok {
				o = mergeOffer(prev, o)
			}
			m.offers[id] = o
		}
	}
	return nil
}

func (m *cmlMerge) addClassifier(c *cmlClassifier) {
	if c == nil {
		return
	}
	var walk func(groups []cmlGroup)
	walk = func(groups []cmlGroup) {
		for _, g := range groups {
			if id := strings.TrimSpace(g.ID); id != "" {
				m.groups[id] = strings.TrimSpace(g.Name)
			}
			walk(g.Children)
		}
	}
	walk(c.Groups)

	for _, p := range c.Properties {
		if id := strings.TrimSpace(p.ID); id != "" {
			m.properties[id] = p
		}
	}
}

// baseOfferID strips the characteristic suffix: "<product>#<variant>".
func baseOfferID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.IndexByte(id, '#'); i >= 0 {
		return id[:i]
	}
	return id
}

// mergeOffer combines variants of one product: first price, summed stock.
func mergeOffer(a, b cmlOffer) cmlOffer {
	if len(a.Prices) == 0 {
		a.Prices = b.Prices
	}
	qa, qb := offerQuantity(a), offerQuantity(b)
	switch {
	case qa != nil && qb != nil:
		a.Quantity = fmt.Sprintf("%g", *qa+*qb)
	case qb != nil:
		a.Quantity = b.Quantity
	}
	a.Stores = nil
	return a
}

func offerQuantity(o cmlOffer) *float64 {
	if q := parseFloat(o.Quantity); q != nil {
		return q
	}
	var total *float64
	for _, s := range o.Stores {
		if q := parseFloat(s.Quantity); q != nil {
			if total == nil {
				total = new(float64)
			}
			*total += *q
		}
	}
	return total
}

func (m *cmlMerge) join() []rawProduct {
	products := make([]rawProduct, 0, len(m.order))
	for _, id := range m.order {
		p := m.products[id]
		r := rawProduct{
			ID:          id,
			SKU:         p.SKU,
			Name:        p.Name,
			Brand:       p.Manufacturer,
			Description: htmlText(p.Description),
		}
		if len(p.Images) > 0 {
			r.ImageURL = p.Images[0]
		}
		if len(p.Groups) > 0 {
			groupID := strings.TrimSpace(p.Groups[0])
			if name, ok := m.groups[groupID]; ok && name != "" {
				r.Category = name
			} else {
				r.Category = groupID
			}
		}

		pairs := make([]cmlRequisite, 0, len(p.Properties)+len(p.Requisites)+len(p.Features))
		for _, pv := range p.Properties {
			name, value := m.resolveProperty(pv)
			pairs = append(pairs, cmlRequisite{Name: name, Value: value})
		}
		pairs = append(pairs, p.Requisites...)
		pairs = append(pairs, p.Features...)
		for _, pair := range pairs {
			if cmlBrandRequisites[strings.ToLower(strings.TrimSpace(pair.Name))] {
				if strings.TrimSpace(r.Brand) == "" {
					r.Brand = pair.Value
				}
				continue
			}
			r.Attrs = append(r.Attrs, attrPair{Name: pair.Name, Value: pair.Value})
		}

		if o, ok := m.offers[id]; ok {
			if len(o.Prices) > 0 {
				r.Price = parseFloat(o.Prices[0].PerUnit)
			}
			r.Stock = offerQuantity(o)
		}
		products = append(products, r)
	}
	return products
}

// resolveProperty maps property and dictionary-value ids to readable text.
// Unknown ids are kept as-is.
func (m *cmlMerge) resolveProperty(pv cmlPropValue) (string, string) {
	id := strings.TrimSpace(pv.ID)
	value := strings.TrimSpace(pv.Value)

	prop, ok := m.properties[id]
	if !ok {
		return id, value
	}
	for _, item := range prop.Values {
		if strings.TrimSpace(item.ID) == value {
			value = strings.TrimSpace(item.Value)
			break
		}
	}
	name := strings.TrimSpace(prop.Name)
	if name == "" {
		name = id
	}
	return name, value
}
