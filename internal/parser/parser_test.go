package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"electrobot/catalog/internal/classifier"
	"electrobot/catalog/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYML = `<?xml version="1.0" encoding="UTF-8"?>
<yml_catalog date="2024-03-01 10:00">
<shop>
<categories>
  <category id="1">Автоматические выключатели</category>
  <category id="2">Кабель</category>
</categories>
<offers>
  <offer id="101" available="true">
    <name>Автоматический выключатель ВА88-35 3P 400А</name>
    <vendor>IEK</vendor>
    <vendorCode>SVA30-3-0400</vendorCode>
    <price>15400.50</price>
    <categoryId>1</categoryId>
    <picture>https://cdn.example.com/101.jpg</picture>
    <description><![CDATA[<p>Корпус <b>литой</b></p>]]></description>
    <param name="IP">IP20</param>
    <param name="Номинальный ток" unit="А">400</param>
  </offer>
  <offer id="102" available="false">
    <name>Кабель ВВГнг 3х2,5 мм2</name>
    <vendor>Конкорд</vendor>
    <price>95</price>
    <categoryId>2</categoryId>
  </offer>
  <offer id="103">
    <price>1</price>
    <categoryId>9</categoryId>
  </offer>
</offers>
</shop>
</yml_catalog>`

const testCMLImport = `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация ВерсияСхемы="2.05">
<Классификатор>
  <Группы>
    <Группа><Ид>g1</Ид><Наименование>Электрооборудование</Наименование>
      <Группы><Группа><Ид>g2</Ид><Наименование>Контакторы</Наименование></Группа></Группы>
    </Группа>
  </Группы>
  <Свойства>
    <Свойство><Ид>p1</Ид><Наименование>Число полюсов</Наименование>
      <ВариантыЗначений><Справочник><ИдЗначения>v3</ИдЗначения><Значение>3</Значение></Справочник></ВариантыЗначений>
    </Свойство>
  </Свойства>
</Классификатор>
<Каталог>
  <Товары>
    <Товар>
      <Ид>c1</Ид><Артикул>KMI-11210</Артикул><Наименование>Контактор КМИ-11210 12А 230В</Наименование>
      <Группы><Ид>g2</Ид></Группы>
      <Изготовитель><Наименование>IEK</Наименование></Изготовитель>
      <ЗначенияСвойств><ЗначенияСвойства><Ид>p1</Ид><Значение>v3</Значение></ЗначенияСвойства></ЗначенияСвойств>
      <ЗначенияРеквизитов><ЗначениеРеквизита><Наименование>Вес</Наименование><Значение>0.3</Значение></ЗначениеРеквизита></ЗначенияРеквизитов>
    </Товар>
    <Товар>
      <Ид>c2</Ид><Наименование>Щит ЩРН-12</Наименование>
      <Группы><Ид>gX</Ид></Группы>
      <ЗначенияРеквизитов><ЗначениеРеквизита><Наименование>Производитель</Наименование><Значение>EKF</Значение></ЗначениеРеквизита></ЗначенияРеквизитов>
    </Товар>
  </Товары>
</Каталог>
</КоммерческаяИнформация>`

const testCMLOffers = `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация ВерсияСхемы="2.05">
<ПакетПредложений>
  <Предложения>
    <Предложение><Ид>c1#a</Ид><Цены><Цена><ЦенаЗаЕдиницу>1250.00</ЦенаЗаЕдиницу></Цена></Цены><Количество>3</Количество></Предложение>
    <Предложение><Ид>c1#b</Ид><Количество>2</Количество></Предложение>
    <Предложение><Ид>c2</Ид><Цены><Цена><ЦенаЗаЕдиницу>4 300,00</ЦенаЗаЕдиницу></Цена></Цены><Количество>0</Количество></Предложение>
  </Предложения>
</ПакетПредложений>
</КоммерческаяИнформация>`

const testCMLCombined = `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация ВерсияСхемы="2.05">
<Классификатор>
  <Группы>
    <Группа><Ид>g1</Ид><Наименование>Электрооборудование</Наименование>
      <Группы><Группа><Ид>g2</Ид><Наименование>Контакторы</Наименование></Группа></Группы>
    </Группа>
  </Группы>
  <Свойства>
    <Свойство><Ид>p1</Ид><Наименование>Число полюсов</Наименование>
      <ВариантыЗначений><Справочник><ИдЗначения>v3</ИдЗначения><Значение>3</Значение></Справочник></ВариантыЗначений>
    </Свойство>
  </Свойства>
</Классификатор>
<Каталог>
  <Товары>
    <Товар>
      <Ид>c1</Ид><Артикул>KMI-11210</Артикул><Наименование>Контактор КМИ-11210 12А 230В</Наименование>
      <Группы><Ид>g2</Ид></Группы>
      <Изготовитель><Наименование>IEK</Наименование></Изготовитель>
      <ЗначенияСвойств><ЗначенияСвойства><Ид>p1</Ид><Значение>v3</Значение></ЗначенияСвойства></ЗначенияСвойств>
      <ЗначенияРеквизитов><ЗначениеРеквизита><Наименование>Вес</Наименование><Значение>0.3</Значение></ЗначениеРеквизита></ЗначенияРеквизитов>
    </Товар>
    <Товар>
      <Ид>c2</Ид><Наименование>Щит ЩРН-12</Наименование>
      <Группы><Ид>gX</Ид></Группы>
      <ЗначенияРеквизитов><ЗначениеРеквизита><Наименование>Производитель</Наименование><Значение>EKF</Значение></ЗначениеРеквизита></ЗначенияРеквизитов>
    </Товар>
  </Товары>
</Каталог>
<ПакетПредложений>
  <Предложения>
    <Предложение><Ид>c1#a</Ид><Цены><Цена><ЦенаЗаЕдиницу>1250.00</ЦенаЗаЕдиницу></Цена></Цены><Количество>3</Количество></Предложение>
    <Предложение><Ид>c1#b</Ид><Количество>2</Количество></Предложение>
    <Предложение><Ид>c2</Ид><Цены><Цена><ЦенаЗаЕдиницу>4 300,00</ЦенаЗаЕдиницу></Цена></Цены><Количество>0</Количество></Предложение>
  </Предложения>
</ПакетПредложений>
</КоммерческаяИнформация>`

func newTestParser() *Parser {
	return NewParser(classifier.NewRegexClassifier(nil), classifier.NewAttrNormalizer(nil), "Без категории")
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func assertNormalized(t *testing.T, products []domain.Product) {
	t.Helper()
	for _, p := range products {
		assert.NotEmpty(t, p.Name)
		assert.False(t, p.ID == "" && p.SKU == "", "id and sku both empty for %q", p.Name)
		assert.NotEmpty(t, p.Category)
		assert.NotNil(t, p.Attrs)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		url         string
		body        []byte
		want        Format
	}{
		{"yml suffix", "", "https://shop.example.com/feed.yml", nil, FormatYML},
		{"zip magic", "application/octet-stream", "https://x/export", []byte("PK\x03\x04rest"), FormatCommerceML},
		{"json content type", "application/json; charset=utf-8", "https://x/api/products", nil, FormatJSON},
		{"csv suffix with query", "", "https://x/price.csv?token=1", nil, FormatCSV},
		{"xml sniffed as yml", "text/xml", "https://x/feed", []byte(`<?xml version="1.0"?><yml_catalog>`), FormatYML},
		{"xml sniffed as commerceml", "application/xml", "https://x/import", []byte(`<КоммерческаяИнформация>`), FormatCommerceML},
		{"json by body", "", "https://x/data", []byte("  [ {} ]"), FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.contentType, tt.url, tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DetectFormat("image/png", "https://x/logo.png", []byte{0x89, 'P', 'N', 'G'})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{
		"":           "",
		" YML ":      FormatYML,
		"commerceml": FormatCommerceML,
		"xml":        FormatCommerceML,
		"json":       FormatJSON,
		"CSV":        FormatCSV,
	} {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseYML(t *testing.T) {
	products, err := newTestParser().Parse(FormatYML, []byte(testYML))
	require.NoError(t, err)
	require.Len(t, products, 2, "nameless offer must be dropped")
	assertNormalized(t, products)

	breaker := products[0]
	assert.Equal(t, "101", breaker.ID)
	assert.Equal(t, "SVA30-3-0400", breaker.SKU)
	assert.Equal(t, "IEK", breaker.Brand)
	assert.Equal(t, "Автоматические выключатели", breaker.Category)
	assert.Equal(t, "breaker", breaker.Type)
	require.NotNil(t, breaker.Amp)
	assert.Equal(t, 400, *breaker.Amp)
	require.NotNil(t, breaker.Price)
	assert.InDelta(t, 15400.5, *breaker.Price, 0.001)
	assert.Equal(t, domain.AvailabilityInStock, breaker.Availability())
	assert.Equal(t, "https://cdn.example.com/101.jpg", breaker.ImageURL)
	assert.Equal(t, "Корпус литой", breaker.Description)
	assert.Equal(t, "IP20", breaker.Attrs["Степень защиты, IP"])
	assert.Equal(t, "400 А", breaker.Attrs["Номинальный ток, А"])

	cable := products[1]
	assert.Equal(t, "cable", cable.Type)
	require.NotNil(t, cable.Sqmm)
	assert.InDelta(t, 2.5, *cable.Sqmm, 0.001)
	assert.Nil(t, cable.Amp)
	assert.Equal(t, domain.AvailabilityBackOrder, cable.Availability())
}

func TestParseCommerceML(t *testing.T) {
	products, err := newTestParser().Parse(FormatCommerceML, []byte(testCMLCombined))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assertNormalized(t, products)

	contactor := products[0]
	assert.Equal(t, "c1", contactor.ID)
	assert.Equal(t, "Контакторы", contactor.Category)
	assert.Equal(t, "contactor", contactor.Type)
	assert.Equal(t, "IEK", contactor.Brand)
	assert.Equal(t, "3", contactor.Attrs["Количество полюсов"])
	assert.Equal(t, "0.3", contactor.Attrs["Вес"])
	require.NotNil(t, contactor.Stock)
	assert.InDelta(t, 5, *contactor.Stock, 0.001, "variant stock is summed")
	require.NotNil(t, contactor.Price)
	assert.InDelta(t, 1250, *contactor.Price, 0.001)

	panel := products[1]
	assert.Equal(t, "gX", panel.Category, "unresolved group keeps its id")
	assert.Equal(t, "EKF", panel.Brand)
	require.NotNil(t, panel.Price)
	assert.InDelta(t, 4300, *panel.Price, 0.001)
	assert.Equal(t, domain.AvailabilityBackOrder, panel.Availability())
}

func TestParseCommerceMLZipMatchesSingleFile(t *testing.T) {
	p := newTestParser()

	single, err := p.Parse(FormatCommerceML, []byte(testCMLCombined))
	require.NoError(t, err)

	archive := buildZip(t, map[string]string{
		"import0_1.xml":           testCMLImport,
		"offers0_1.xml":           testCMLOffers,
		"import_files/readme.txt": "ignored",
	})
	zipped, err := p.Parse(FormatCommerceML, archive)
	require.NoError(t, err)

	assert.Equal(t, single, zipped)
}

func TestParseFallsBackToSiblingXMLDialect(t *testing.T) {
	p := newTestParser()

	products, err := p.Parse(FormatCommerceML, []byte(testYML))
	require.NoError(t, err)
	assert.Len(t, products, 2)

	products, err = p.Parse(FormatYML, []byte(testCMLCombined))
	require.NoError(t, err)
	assert.Len(t, products, 2)

	_, err = p.Parse(FormatYML, []byte("<html><body>maintenance</body>"))
	require.Error(t, err)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, FormatYML, perr.Format)
}

func TestParseJSON(t *testing.T) {
	body := `[
		{"id": 7, "name": "Контактор КМИ 25А", "brand": "IEK", "amp": "25", "price": 990.9, "stock": null,
		 "attrs": {"ip": "IP20", "Число полюсов": 3}},
		{"sku": "NO-ID", "name": "Клемма", "category": "Клеммы"},
		{"id": "x", "brand": "ABB"}
	]`

	products, err := newTestParser().Parse(FormatJSON, []byte(body))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assertNormalized(t, products)

	assert.Equal(t, "7", products[0].ID)
	assert.Equal(t, "contactor", products[0].Type)
	require.NotNil(t, products[0].Amp)
	assert.Equal(t, 25, *products[0].Amp)
	assert.Nil(t, products[0].Stock)
	assert.Equal(t, "IP20", products[0].Attrs["Степень защиты, IP"])
	assert.Equal(t, "3", products[0].Attrs["Количество полюсов"])

	assert.Equal(t, "NO-ID", products[1].ID, "id falls back to sku")
	assert.Equal(t, "Клеммы", products[1].Category)
}

func TestParseJSONRequiresArray(t *testing.T) {
	_, err := newTestParser().Parse(FormatJSON, []byte(`{"items": []}`))
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, FormatJSON, perr.Format)

	_, err = newTestParser().Parse(FormatJSON, []byte(`[{"name": "ok"}, 42]`))
	assert.Error(t, err, "one bad element fails the whole payload")

	for _, body := range []string{"null", " \n null ", `"products"`, ""} {
		_, err = newTestParser().Parse(FormatJSON, []byte(body))
		require.True(t, errors.As(err, &perr), "body %q", body)
	}
}

func TestParseCSVRoundTrip(t *testing.T) {
	body := "\xEF\xBB\xBFID,SKU,Name,Brand,Category,Amp,Price,Stock,Цвет\n" +
		",X-1,Breaker MCB C16,ABB,,400,1234.50,,серый\n" +
		",,,ABB,,,,,\n"

	products, err := newTestParser().Parse(FormatCSV, []byte(body))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assertNormalized(t, products)

	p := products[0]
	assert.Equal(t, "X-1", p.ID)
	assert.Equal(t, "Без категории", p.Category)
	assert.Equal(t, "breaker", p.Type)
	require.NotNil(t, p.Amp)
	assert.Equal(t, 400, *p.Amp)
	require.NotNil(t, p.Price)
	assert.Equal(t, 1234.5, *p.Price)
	assert.Nil(t, p.Stock)
	assert.Equal(t, "серый", p.Attrs["Цвет"])
}

func TestParseCSVSemicolonAndBadNumbers(t *testing.T) {
	body := "артикул;наименование;цена;остаток\n" +
		"A-2;Кабель ВВГнг 3х1,5;по запросу;12\n"

	products, err := newTestParser().Parse(FormatCSV, []byte(body))
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "A-2", p.ID)
	assert.Nil(t, p.Price, "unparsable price becomes absent")
	require.NotNil(t, p.Stock)
	assert.Equal(t, 12.0, *p.Stock)
	assert.Equal(t, "cable", p.Type)
}

func TestParseCSVWithoutNameColumn(t *testing.T) {
	_, err := newTestParser().Parse(FormatCSV, []byte("sku,price\nA,1\n"))
	assert.ErrorIs(t, err, errNoNameColumn)
}
