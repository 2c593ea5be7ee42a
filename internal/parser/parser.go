package parser

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	"electrobot/catalog/internal/classifier"
	"electrobot/catalog/internal/domain"

	log "github.com/sirupsen/logrus"
)

type Format string

const (
	FormatYML        Format = "yml"
	FormatCommerceML Format = "commerceml"
	FormatJSON       Format = "json"
	FormatCSV        Format = "csv"
)

func (f Format) String() string {
	return string(f)
}

var ErrUnknownFormat = errors.New("unrecognized feed format")

// ParseFormat resolves a configured format name; "" means detect per response.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", FormatYML, FormatCommerceML, FormatJSON, FormatCSV:
		return f, nil
	case "xml":
		return FormatCommerceML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// ParseError reports a payload that could not be decoded in the given format.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s feed: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks a decoder from the response content type, the URL suffix
// and, when both are inconclusive, the first bytes of the payload.
func DetectFormat(contentType, url string, body []byte) (Format, error) {
	ct := strings.ToLower(contentType)
	ext := strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0]))

	switch {
	case bytes.HasPrefix(body, zipMagic), ext == ".zip", strings.Contains(ct, "zip"):
		return FormatCommerceML, nil
	case ext == ".yml", ext == ".yaml":
		return FormatYML, nil
	case ext == ".json", strings.Contains(ct, "json"):
		return FormatJSON, nil
	case ext == ".csv", strings.Contains(ct, "csv"):
		return FormatCSV, nil
	case ext == ".xml", strings.Contains(ct, "xml"):
		return sniffXML(body), nil
	}

	head := bytes.TrimSpace(bytes.TrimPrefix(body, utf8BOM))
	switch {
	case bytes.HasPrefix(head, []byte("[")):
		return FormatJSON, nil
	case bytes.HasPrefix(head, []byte("<")):
		return sniffXML(body), nil
	}
	return "", ErrUnknownFormat
}

func sniffXML(body []byte) Format {
	n := len(body)
	if n > 4096 {
		n = 4096
	}
	if bytes.Contains(body[:n], []byte("<yml_catalog")) {
		return FormatYML
	}
	return FormatCommerceML
}

// Parser decodes feed payloads into normalized products.
type Parser struct {
	classifier    classifier.Classifier
	attrs         *classifier.AttrNormalizer
	uncategorized string
}

func NewParser(c classifier.Classifier, attrs *classifier.AttrNormalizer, uncategorized string) *Parser {
	if uncategorized == "" {
		uncategorized = "Uncategorized"
	}
	return &Parser{
		classifier:    c,
		attrs:         attrs,
		uncategorized: uncategorized,
	}
}

// Parse decodes body in the given format. A failure of one XML dialect is
// retried with the other before giving up.
func (p *Parser) Parse(format Format, body []byte) ([]domain.Product, error) {
	raw, err := p.decode(format, body)
	if err != nil {
		alt, ok := fallbackFormat(format)
		if !ok {
			return nil, err
		}
		log.Warnf("⚠️ %v, retrying as %s", err, alt)
		var altErr error
		raw, altErr = p.decode(alt, body)
		if altErr != nil {
			return nil, err
		}
	}

	products := p.normalize(raw)
	log.Debugf("Parsed %d raw records into %d products (%s)", len(raw), len(products), format)
	return products, nil
}

func fallbackFormat(f Format) (Format, bool) {
	switch f {
	case FormatYML:
		return FormatCommerceML, true
	case FormatCommerceML:
		return FormatYML, true
	}
	return "", false
}

func (p *Parser) decode(format Format, body []byte) ([]rawProduct, error) {
	var (
		raw []rawProduct
		err error
	)
	switch format {
	case FormatYML:
		raw, err = decodeYML(body)
	case FormatCommerceML:
		raw, err = decodeCommerceML(body)
	case FormatJSON:
		raw, err = decodeJSON(body)
	case FormatCSV:
		raw, err = decodeCSV(body)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}
	return raw, nil
}
