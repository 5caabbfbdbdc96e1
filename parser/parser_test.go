package parser

import (
	"testing"

	"restaurant-scraper/config"
	"restaurant-scraper/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://example.com/best-restaurants"

func place(name, address string) string {
	html := `<div class="component--place-reference">`
	if name != "" {
		html += `<div class="header"><h2> ` + name + ` </h2></div>`
	}
	html += address + `</div>`
	return html
}

func article(title, zone string) string {
	html := `<html><body>`
	if title != "" {
		html += `<h1 class="title">  ` + title + `
		</h1>`
	}
	html += zone + `</body></html>`
	return html
}

func zone(places ...string) string {
	html := `<section class="places-zone">`
	for _, p := range places {
		html += p
	}
	return html + `</section>`
}

const fullAddress = `<div class="field--name-field-address">` +
	`<span class="icon">•</span><span> 12 Main St </span><span>Springfield,</span><span> USA</span>` +
	`</div>`

func TestExtract_FullAddress(t *testing.T) {
	e := NewExtractor(config.DefaultSchema())

	res := e.Extract(article("Best Eats", zone(place("Luigi's", fullAddress))), pageURL)

	require.Equal(t, models.StatusOK, res.Status)
	require.NoError(t, res.Err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, models.Record{
		Title:   "Best Eats",
		URL:     pageURL,
		Name:    "Luigi's",
		Address: "12 Main St",
		City:    "Springfield",
		Country: "USA",
	}, res.Records[0])
}

func TestExtract_AddressSegments(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected models.Record
	}{
		{
			name:     "two segments",
			address:  `<div class="field--name-field-address"><span>•</span><span>12 Main St</span></div>`,
			expected: models.Record{Address: "12 Main St"},
		},
		{
			name:     "three segments",
			address:  `<div class="field--name-field-address"><span>•</span><span>12 Main St</span><span>Springfield, </span></div>`,
			expected: models.Record{Address: "12 Main St", City: "Springfield"},
		},
		{
			name:     "only the icon segment",
			address:  `<div class="field--name-field-address"><span>•</span></div>`,
			expected: models.Record{},
		},
		{
			name:     "no address block",
			address:  ``,
			expected: models.Record{},
		},
		{
			name:     "nested spans are not segments",
			address:  `<div class="field--name-field-address"><span>•</span><span>1 Rue <span>Haute</span></span><span>Paris</span></div>`,
			expected: models.Record{Address: "1 Rue Haute", City: "Paris"},
		},
		{
			name:     "city keeps inner commas",
			address:  `<div class="field--name-field-address"><span>•</span><span>5 Road</span><span>Washington, D.C.,,</span><span>USA</span></div>`,
			expected: models.Record{Address: "5 Road", City: "Washington, D.C.", Country: "USA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(config.DefaultSchema())
			res := e.Extract(article("T", zone(place("Chez Nous", tt.address))), pageURL)

			require.Equal(t, models.StatusOK, res.Status)
			require.Len(t, res.Records, 1)
			got := res.Records[0]
			assert.Equal(t, "Chez Nous", got.Name)
			assert.Equal(t, tt.expected.Address, got.Address)
			assert.Equal(t, tt.expected.City, got.City)
			assert.Equal(t, tt.expected.Country, got.Country)
		})
	}
}

func TestExtract_SkipsPlacesWithoutName(t *testing.T) {
	e := NewExtractor(config.DefaultSchema())
	html := article("T", zone(
		place("A", ""),
		place("", fullAddress),
		place("B", fullAddress),
		`<div class="component--place-reference"><h2>   </h2></div>`,
		place("C", ""),
	))

	res := e.Extract(html, pageURL)

	require.Equal(t, models.StatusOK, res.Status)
	require.NoError(t, res.Err)
	var names []string
	for _, r := range res.Records {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)
}

func TestExtract_TitleAndURLOnEveryRecord(t *testing.T) {
	e := NewExtractor(config.DefaultSchema())
	res := e.Extract(article("Top 3 Spots", zone(place("A", ""), place("B", fullAddress), place("C", ""))), pageURL)

	require.Len(t, res.Records, 3)
	for _, r := range res.Records {
		assert.Equal(t, "Top 3 Spots", r.Title)
		assert.Equal(t, pageURL, r.URL)
	}
}

func TestExtract_MissingTitle(t *testing.T) {
	t.Run("fail policy fails the whole page", func(t *testing.T) {
		e := NewExtractor(config.DefaultSchema())
		res := e.Extract(article("", zone(place("A", fullAddress))), pageURL)

		assert.Equal(t, models.StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, ErrMissingTitle)
		assert.Empty(t, res.Records)
	})

	t.Run("empty policy keeps the records", func(t *testing.T) {
		schema := config.DefaultSchema()
		schema.MissingTitle = config.MissingTitleEmpty
		res := NewExtractor(schema).Extract(article("", zone(place("A", fullAddress))), pageURL)

		require.Equal(t, models.StatusOK, res.Status)
		require.Len(t, res.Records, 1)
		assert.Equal(t, "", res.Records[0].Title)
		assert.Equal(t, "A", res.Records[0].Name)
	})

	t.Run("h1 without the title class does not count", func(t *testing.T) {
		e := NewExtractor(config.DefaultSchema())
		res := e.Extract(`<html><body><h1>Other</h1>`+zone(place("A", ""))+`</body></html>`, pageURL)

		assert.Equal(t, models.StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, ErrMissingTitle)
	})
}

func TestExtract_Scope(t *testing.T) {
	outside := place("Outside", "")
	inside := place("Inside", "")

	t.Run("scoped ignores places outside the zone", func(t *testing.T) {
		e := NewExtractor(config.DefaultSchema())
		res := e.Extract(article("T", outside+zone(inside)), pageURL)

		require.Equal(t, models.StatusOK, res.Status)
		require.Len(t, res.Records, 1)
		assert.Equal(t, "Inside", res.Records[0].Name)
	})

	t.Run("scoped without zone is a recoverable empty result", func(t *testing.T) {
		e := NewExtractor(config.DefaultSchema())
		res := e.Extract(article("T", outside), pageURL)

		assert.Equal(t, models.StatusEmpty, res.Status)
		assert.ErrorIs(t, res.Err, ErrMissingZone)
		assert.Empty(t, res.Records)
	})

	t.Run("missing title wins over missing zone", func(t *testing.T) {
		e := NewExtractor(config.DefaultSchema())
		res := e.Extract(article("", outside), pageURL)

		assert.Equal(t, models.StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, ErrMissingTitle)
	})

	t.Run("unscoped searches the whole document", func(t *testing.T) {
		schema := config.DefaultSchema()
		schema.Scope = config.ScopeUnscoped
		res := NewExtractor(schema).Extract(article("T", outside+zone(inside)), pageURL)

		require.Equal(t, models.StatusOK, res.Status)
		require.Len(t, res.Records, 2)
		assert.Equal(t, "Outside", res.Records[0].Name)
		assert.Equal(t, "Inside", res.Records[1].Name)
	})

	t.Run("unscoped without zone still extracts", func(t *testing.T) {
		schema := config.DefaultSchema()
		schema.Scope = config.ScopeUnscoped
		res := NewExtractor(schema).Extract(article("T", outside), pageURL)

		require.Equal(t, models.StatusOK, res.Status)
		require.Len(t, res.Records, 1)
	})
}

func TestExtract_ZoneWithoutPlaces(t *testing.T) {
	e := NewExtractor(config.DefaultSchema())
	res := e.Extract(article("T", zone()), pageURL)

	assert.Equal(t, models.StatusOK, res.Status)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Records)
}

func TestExtract_CustomSchema(t *testing.T) {
	schema := config.Schema{
		Version:      2,
		Title:        "header h1",
		Zone:         "ul.venues",
		Place:        "li.venue",
		Name:         ".venue-name",
		Address:      "p.addr",
		Segment:      "em",
		AddressIndex: 0,
		CityIndex:    1,
		CountryIndex: 2,
		Scope:        config.ScopeScoped,
		MissingTitle: config.MissingTitleFail,
	}
	html := `<header><h1>Guide</h1></header><ul class="venues">` +
		`<li class="venue"><span class="venue-name">Noma</span><p class="addr"><em>Refshalevej 96</em><em>Copenhagen,</em><em>Denmark</em></p></li>` +
		`</ul>`

	res := NewExtractor(schema).Extract(html, pageURL)

	require.Equal(t, models.StatusOK, res.Status)
	require.Len(t, res.Records, 1)
	assert.Equal(t, models.Record{
		Title:   "Guide",
		URL:     pageURL,
		Name:    "Noma",
		Address: "Refshalevej 96",
		City:    "Copenhagen",
		Country: "Denmark",
	}, res.Records[0])
}

func TestExtract_IsPure(t *testing.T) {
	e := NewExtractor(config.DefaultSchema())
	html := article("T", zone(place("A", fullAddress), place("B", "")))

	first := e.Extract(html, pageURL)
	second := e.Extract(html, pageURL)

	assert.Equal(t, first, second)
}
