package entities

// DocProps carries the document properties the device stores alongside its
// annotation export.
type DocProps struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description,omitempty"`
	Keywords    string   `json:"keywords,omitempty"`
	Language    string   `json:"language,omitempty"`
	Series      string   `json:"series,omitempty"`
}

// Statistics holds the reading statistics the device tracks per book. All
// fields are optional; a zero value means the device did not report them.
type Statistics struct {
	Pages           int     `json:"pages,omitempty"`
	LastReadDate    string  `json:"last_read_date,omitempty"`
	FirstReadDate   string  `json:"first_read_date,omitempty"`
	TotalReadTime   int     `json:"total_read_time,omitempty"` // seconds
	Progress        float64 `json:"progress,omitempty"`        // 0.0-1.0
	Status          string  `json:"status,omitempty"`          // reading, complete, abandoned
	AvgTimePerPage  float64 `json:"avg_time_per_page,omitempty"`
	HighlightsCount int     `json:"highlights_count,omitempty"`
	NotesCount      int     `json:"notes_count,omitempty"`
}

// BookMetadata is the fully parsed export for one book, as handed over by
// the device metadata parser.
type BookMetadata struct {
	Props       DocProps     `json:"doc_props"`
	Annotations []Annotation `json:"annotations"`
	Stats       Statistics   `json:"statistics"`
}

// DocumentRef points at one existing vault document.
type DocumentRef struct {
	Path string `json:"path"` // vault-relative path
}
