package parser

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

var utf8BOM = []byte("\xEF\xBB\xBF")

// decodeXML unmarshals an XML document honouring its declared encoding;
// Russian feeds are frequently windows-1251.
func decodeXML(body []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(body, utf8BOM)))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false
	return dec.Decode(v)
}

// htmlText strips markup from feed descriptions, which often embed HTML.
func htmlText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	doc.Find("br, p, li, div").Each(func(i int, sel *goquery.Selection) {
		sel.AfterHtml(" ")
	})
	return collapse(doc.Text())
}
