package models

// Record represents one restaurant found on an article page
type Record struct {
	Title   string // Heading of the article the restaurant was listed in
	URL     string // Page the article was fetched from
	Name    string
	Address string
	City    string
	Country string
}

// Columns is the exported column order for every tabular format
var Columns = []string{"TITLE", "URL", "RESTAURANT", "ADDRESS", "CITY", "COUNTRY"}

// Values returns the record fields in Columns order
func (r Record) Values() []string {
	return []string{r.Title, r.URL, r.Name, r.Address, r.City, r.Country}
}
