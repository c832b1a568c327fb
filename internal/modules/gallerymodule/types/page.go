package types

// DefaultPageSize is used when no page size is configured
const DefaultPageSize = 20

// Page is one bounded, ordered batch of records.
// Image-store records always precede video-store records.
type Page struct {
	Index       int           `json:"page"`
	Size        int           `json:"page_size"`
	Records     []MediaRecord `json:"records"`
	HasNext     bool          `json:"has_next"`
	HasPrevious bool          `json:"has_previous"`
}

// NewPage builds a page and derives its navigation flags
func NewPage(index, size int, records []MediaRecord) *Page {
	if records == nil {
		records = []MediaRecord{}
	}
	return &Page{
		Index:       index,
		Size:        size,
		Records:     records,
		HasNext:     len(records) == size,
		HasPrevious: index > 0,
	}
}

// NextKey returns the index of the following page, or nil when the page was
// not full and the library is exhausted
func (p *Page) NextKey() *int {
	if !p.HasNext {
		return nil
	}
	next := p.Index + 1
	return &next
}

// PrevKey returns the index of the preceding page, or nil for page 0
func (p *Page) PrevKey() *int {
	if !p.HasPrevious {
		return nil
	}
	prev := p.Index - 1
	return &prev
}

// Len returns the number of records on the page
func (p *Page) Len() int {
	return len(p.Records)
}
