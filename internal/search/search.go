package search

// Result is a single project hit returned to the caller.
type Result struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Snippet      string `json:"snippet"`
	OwnerID      string `json:"ownerId"`
	CurrentPhase string `json:"currentPhase"`
}

// Query describes a search request. OwnerID scopes results to one user's
// projects unless IncludeAll is set (admin views).
type Query struct {
	Text       string
	OwnerID    string
	IncludeAll bool
	Phase      string // empty = all phases
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over projects.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ProjectRecord is the data we index for a project. SectionText flattens the
// visible section markup of all phases so scenario and section content is
// searchable.
type ProjectRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Notes        string `json:"notes"`
	SectionText  string `json:"sectionText"`
	OwnerID      string `json:"ownerId"`
	CurrentPhase string `json:"currentPhase"`
}
