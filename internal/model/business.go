package model

// Business is a stored business record as served by the extractor API.
// Records are values: a refetch replaces the record wholesale.
type Business struct {
	ID           string  `json:"id"`
	BusinessName string  `json:"businessName"`
	RealCategory string  `json:"realCategory"`
	Category     string  `json:"category"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	PostalCode   string  `json:"postalCode"`
	Country      string  `json:"country"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email"`
	Website      string  `json:"website"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	MapsLink     string  `json:"mapsLink"`
	DetailsLink  string  `json:"detailsLink"`
}

// HasCoords reports whether the record carries a usable position.
func (b Business) HasCoords() bool {
	return b.Latitude != 0 || b.Longitude != 0
}

// SearchRequest asks the server to scrape every category × location pair.
type SearchRequest struct {
	Categories []string `json:"categories"`
	Locations  []string `json:"locations"`
}

// Pairs is the number of tasks the server will create for the request.
func (r SearchRequest) Pairs() int {
	return len(r.Categories) * len(r.Locations)
}

// Results is the incremental result set of the current job.
type Results struct {
	Businesses []Business `json:"businesses"`
	Total      int        `json:"total"`
	Status     string     `json:"status"`
}

// Page is one page of a paged catalog endpoint.
type Page struct {
	Content       []Business `json:"content"`
	Last          bool       `json:"last"`
	TotalElements int        `json:"totalElements"`
	TotalPages    int        `json:"totalPages"`
}
