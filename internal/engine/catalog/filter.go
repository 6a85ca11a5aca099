package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/egemenmermer/business-extractor/internal/model"
)

// Source serves pages of the stored-business catalog. List endpoints return
// a bare slice; paged endpoints also report whether the page is the last.
type Source interface {
	Businesses(ctx context.Context, page, size int) ([]model.Business, error)
	BusinessesByCategory(ctx context.Context, category string, page, size int) ([]model.Business, error)
	BusinessesByCity(ctx context.Context, city string, page, size int) ([]model.Business, error)
	BusinessesByEmail(ctx context.Context, hasEmail bool, page, size int) (model.Page, error)
	BusinessesByCountry(ctx context.Context, country string, page, size int) (model.Page, error)
}

// Filter is exactly one of NoFilter, CategoryFilter, CityFilter, EmailFilter
// or CountryFilter. Applying a filter replaces the previous one.
type Filter interface {
	// fetch returns one page and whether it is the last one.
	fetch(ctx context.Context, src Source, page, size int) ([]model.Business, bool, error)
	String() string
}

type (
	NoFilter       struct{}
	CategoryFilter struct{ Category string }
	CityFilter     struct{ City string }
	EmailFilter    struct{ HasEmail bool }
	CountryFilter  struct{ Country string }
)

// Category returns a category filter, or NoFilter for a blank category.
func Category(c string) Filter {
	if c = strings.TrimSpace(c); c == "" {
		return NoFilter{}
	}
	return CategoryFilter{Category: c}
}

func City(c string) Filter {
	if c = strings.TrimSpace(c); c == "" {
		return NoFilter{}
	}
	return CityFilter{City: c}
}

func Email(hasEmail bool) Filter {
	return EmailFilter{HasEmail: hasEmail}
}

func Country(c string) Filter {
	if c = strings.TrimSpace(c); c == "" {
		return NoFilter{}
	}
	return CountryFilter{Country: c}
}

// listPage adapts a bare list endpoint to the last-flag contract.
func listPage(items []model.Business, err error, size int) ([]model.Business, bool, error) {
	if err != nil {
		return nil, false, err
	}
	return items, len(items) < size, nil
}

func pagedPage(p model.Page, err error) ([]model.Business, bool, error) {
	if err != nil {
		return nil, false, err
	}
	return p.Content, p.Last, nil
}

func (NoFilter) fetch(ctx context.Context, src Source, page, size int) ([]model.Business, bool, error) {
	items, err := src.Businesses(ctx, page, size)
	return listPage(items, err, size)
}

func (f CategoryFilter) fetch(ctx context.Context, src Source, page, size int) ([]model.Business, bool, error) {
	items, err := src.BusinessesByCategory(ctx, f.Category, page, size)
	return listPage(items, err, size)
}

func (f CityFilter) fetch(ctx context.Context, src Source, page, size int) ([]model.Business, bool, error) {
	items, err := src.BusinessesByCity(ctx, f.City, page, size)
	return listPage(items, err, size)
}

func (f EmailFilter) fetch(ctx context.Context, src Source, page, size int) ([]model.Business, bool, error) {
	p, err := src.BusinessesByEmail(ctx, f.HasEmail, page, size)
	return pagedPage(p, err)
}

func (f CountryFilter) fetch(ctx context.Context, src Source, page, size int) ([]model.Business, bool, error) {
	p, err := src.BusinessesByCountry(ctx, f.Country, page, size)
	return pagedPage(p, err)
}

func (NoFilter) String() string         { return "all" }
func (f CategoryFilter) String() string { return "category=" + f.Category }
func (f CityFilter) String() string     { return "city=" + f.City }
func (f EmailFilter) String() string    { return "hasEmail=" + strconv.FormatBool(f.HasEmail) }
func (f CountryFilter) String() string  { return "country=" + f.Country }
