package catalog

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/egemenmermer/business-extractor/internal/model"
)

// Sortable columns, named after the wire fields.
const (
	ColumnName       = "businessName"
	ColumnCategory   = "category"
	ColumnAddress    = "address"
	ColumnCity       = "city"
	ColumnState      = "state"
	ColumnPostalCode = "postalCode"
	ColumnCountry    = "country"
	ColumnPhone      = "phone"
	ColumnEmail      = "email"
	ColumnWebsite    = "website"
	ColumnLatitude   = "latitude"
	ColumnLongitude  = "longitude"
)

// Columns lists the sortable columns in display order.
var Columns = []string{
	ColumnName, ColumnCategory, ColumnAddress, ColumnCity, ColumnState,
	ColumnPostalCode, ColumnCountry, ColumnPhone, ColumnEmail, ColumnWebsite,
	ColumnLatitude, ColumnLongitude,
}

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Sort orders a view by one column.
type Sort struct {
	Column    string
	Direction Direction
}

// DefaultSort is ascending by business name.
var DefaultSort = Sort{Column: ColumnName, Direction: Ascending}

// ParseSort reads "column" or "column:asc|desc".
func ParseSort(s string) (Sort, error) {
	col, dir, _ := strings.Cut(strings.TrimSpace(s), ":")
	if !slices.Contains(Columns, col) {
		return Sort{}, fmt.Errorf("unknown sort column %q", col)
	}
	out := Sort{Column: col}
	switch strings.ToLower(dir) {
	case "", "asc":
	case "desc":
		out.Direction = Descending
	default:
		return Sort{}, fmt.Errorf("unknown sort direction %q", dir)
	}
	return out, nil
}

// Toggle selects column: a new column starts ascending, the current column
// flips direction.
func (s Sort) Toggle(column string) Sort {
	if s.Column != column {
		return Sort{Column: column, Direction: Ascending}
	}
	if s.Direction == Ascending {
		return Sort{Column: column, Direction: Descending}
	}
	return Sort{Column: column, Direction: Ascending}
}

func (s Sort) String() string {
	return s.Column + ":" + s.Direction.String()
}

// Apply returns a stably sorted copy of items.
func (s Sort) Apply(items []model.Business) []model.Business {
	out := slices.Clone(items)
	if s.Column == "" {
		return out
	}

	var cmp func(a, b model.Business) int
	switch s.Column {
	case ColumnLatitude:
		cmp = func(a, b model.Business) int { return compareFloat(a.Latitude, b.Latitude) }
	case ColumnLongitude:
		cmp = func(a, b model.Business) int { return compareFloat(a.Longitude, b.Longitude) }
	default:
		get := stringField(s.Column)
		if get == nil {
			return out
		}
		coll := collate.New(language.Und, collate.IgnoreCase)
		cmp = func(a, b model.Business) int { return coll.CompareString(get(a), get(b)) }
	}

	if s.Direction == Descending {
		asc := cmp
		cmp = func(a, b model.Business) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func stringField(column string) func(model.Business) string {
	switch column {
	case ColumnName:
		return func(b model.Business) string { return b.BusinessName }
	case ColumnCategory:
		return func(b model.Business) string { return b.Category }
	case ColumnAddress:
		return func(b model.Business) string { return b.Address }
	case ColumnCity:
		return func(b model.Business) string { return b.City }
	case ColumnState:
		return func(b model.Business) string { return b.State }
	case ColumnPostalCode:
		return func(b model.Business) string { return b.PostalCode }
	case ColumnCountry:
		return func(b model.Business) string { return b.Country }
	case ColumnPhone:
		return func(b model.Business) string { return b.Phone }
	case ColumnEmail:
		return func(b model.Business) string { return b.Email }
	case ColumnWebsite:
		return func(b model.Business) string { return b.Website }
	}
	return nil
}

// Search returns the items with at least one searchable field containing
// term, compared under Unicode case folding. A blank term matches all.
func Search(items []model.Business, term string) []model.Business {
	term = strings.TrimSpace(term)
	if term == "" {
		return slices.Clone(items)
	}
	fold := cases.Fold()
	needle := fold.String(term)

	out := make([]model.Business, 0, len(items))
	for _, b := range items {
		for _, field := range []string{
			b.BusinessName, b.Address, b.City, b.State, b.PostalCode,
			b.Country, b.Phone, b.Email, b.Website, b.Category,
		} {
			if field != "" && strings.Contains(fold.String(field), needle) {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// View is the displayed subset: sort(search(items, term)).
func View(items []model.Business, term string, s Sort) []model.Business {
	return s.Apply(Search(items, term))
}
