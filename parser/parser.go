package parser

import (
	"errors"
	"fmt"
	"strings"

	"restaurant-scraper/config"
	"restaurant-scraper/models"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrParse is returned when the document cannot be parsed as HTML
	ErrParse = errors.New("failed to parse HTML")
	// ErrMissingTitle means the article heading is absent; the page fails as a whole
	ErrMissingTitle = errors.New("article title not found")
	// ErrMissingZone means the listing zone is absent; the page yields no records
	ErrMissingZone = errors.New("listing zone not found")
)

// Extractor turns one article page into restaurant records
type Extractor struct {
	schema config.Schema
}

// NewExtractor creates a new Extractor for the given template schema
func NewExtractor(schema config.Schema) *Extractor {
	return &Extractor{schema: schema}
}

// Schema returns the template schema the extractor was built with
func (e *Extractor) Schema() config.Schema {
	return e.schema
}

// Extract parses htmlContent fetched from sourceURL.
// It never fails on individual places: a place without a name is skipped.
func (e *Extractor) Extract(htmlContent, sourceURL string) models.DocumentResult {
	result := models.DocumentResult{URL: sourceURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		result.Status = models.StatusFailed
		result.Err = fmt.Errorf("%w: %v", ErrParse, err)
		return result
	}

	title, found := e.extractTitle(doc)
	if !found && e.schema.MissingTitle != config.MissingTitleEmpty {
		result.Status = models.StatusFailed
		result.Err = fmt.Errorf("%w (selector %q)", ErrMissingTitle, e.schema.Title)
		return result
	}

	scope := doc.Selection
	if e.schema.Scope != config.ScopeUnscoped {
		zone := doc.Find(e.schema.Zone).First()
		if zone.Length() == 0 {
			result.Status = models.StatusEmpty
			result.Err = fmt.Errorf("%w (selector %q)", ErrMissingZone, e.schema.Zone)
			return result
		}
		scope = zone
	}

	result.Status = models.StatusOK
	scope.Find(e.schema.Place).Each(func(i int, s *goquery.Selection) {
		record, ok := e.extractRecord(s)
		if !ok {
			return
		}
		record.Title = title
		record.URL = sourceURL
		result.Records = append(result.Records, record)
	})

	return result
}

// extractTitle returns the article heading and whether it was present
func (e *Extractor) extractTitle(doc *goquery.Document) (string, bool) {
	heading := doc.Find(e.schema.Title).First()
	if heading.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(heading.Text()), true
}

// extractRecord reads the name and address of a single place
func (e *Extractor) extractRecord(place *goquery.Selection) (models.Record, bool) {
	nameElem := place.Find(e.schema.Name).First()
	if nameElem.Length() == 0 {
		return models.Record{}, false
	}
	name := strings.TrimSpace(nameElem.Text())
	if name == "" {
		return models.Record{}, false
	}

	record := models.Record{Name: name}

	block := place.Find(e.schema.Address).First()
	if block.Length() == 0 {
		return record, true
	}

	// Segment 0 is the icon slot of the template and is never read
	segments := block.ChildrenFiltered(e.schema.Segment)
	record.Address = segmentText(segments, e.schema.AddressIndex)
	record.City = strings.TrimSpace(strings.TrimRight(segmentText(segments, e.schema.CityIndex), ","))
	record.Country = segmentText(segments, e.schema.CountryIndex)

	return record, true
}

func segmentText(segments *goquery.Selection, index int) string {
	if index < 0 || index >= segments.Length() {
		return ""
	}
	return strings.TrimSpace(segments.Eq(index).Text())
}
