// Package crossref fetches work metadata from the CrossRef REST API.
//
// The client looks up single works by DOI via /works/{doi}. API
// documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// WorkResponse is the envelope returned by the /works/{doi} endpoint.
type WorkResponse struct {
	Status  string `json:"status"`
	Message Work   `json:"message"`
}

// Work is a single CrossRef work record. Only the fields the converter
// reads are declared.
type Work struct {
	DOI             string     `json:"DOI"`
	Type            string     `json:"type"`
	Title           []string   `json:"title"`
	ContainerTitle  []string   `json:"container-title"`
	ShortContainer  []string   `json:"short-container-title"`
	Author          []Person   `json:"author"`
	Abstract        string     `json:"abstract"`
	Volume          string     `json:"volume"`
	Issue           string     `json:"issue"`
	Page            string     `json:"page"`
	ISSN            []string   `json:"ISSN"`
	ISBN            []string   `json:"ISBN"`
	URL             string     `json:"URL"`
	Language        string     `json:"language"`
	Subject         []string   `json:"subject"`
	Issued          DateParts  `json:"issued"`
	PublishedPrint  *DateParts `json:"published-print"`
	PublishedOnline *DateParts `json:"published-online"`
}

// Person is a contributor entry on a work.
type Person struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

// DateParts is the CrossRef date representation: an array of
// [year, month, day] arrays, any suffix of which may be absent.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// YMD returns the first year, month, and day of the date, with zero for
// absent parts.
func (d DateParts) YMD() (int, int, int) {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0, 0, 0
	}
	parts := d.DateParts[0]
	year := parts[0]
	month, day := 0, 0
	if len(parts) > 1 {
		month = parts[1]
	}
	if len(parts) > 2 {
		day = parts[2]
	}
	return year, month, day
}
