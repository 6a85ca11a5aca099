package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/egemenmermer/business-extractor/internal/model"
)

func pageParams(page, size int) func(*resty.Request) {
	return func(r *resty.Request) {
		r.SetQueryParams(map[string]string{
			"page": strconv.Itoa(page),
			"size": strconv.Itoa(size),
		})
	}
}

// Businesses returns one page of the unfiltered catalog.
func (c *Client) Businesses(ctx context.Context, page, size int) ([]model.Business, error) {
	return getJSON[[]model.Business](ctx, c, "businesses", "/businesses", pageParams(page, size))
}

// BusinessesByCategory returns one page of businesses in category.
func (c *Client) BusinessesByCategory(ctx context.Context, category string, page, size int) ([]model.Business, error) {
	return getJSON[[]model.Business](ctx, c, "businesses by category", "/businesses/category/{category}",
		func(r *resty.Request) {
			pageParams(page, size)(r)
			r.SetPathParam("category", category)
		})
}

// BusinessesByCity returns one page of businesses in city.
func (c *Client) BusinessesByCity(ctx context.Context, city string, page, size int) ([]model.Business, error) {
	return getJSON[[]model.Business](ctx, c, "businesses by city", "/businesses/city/{city}",
		func(r *resty.Request) {
			pageParams(page, size)(r)
			r.SetPathParam("city", city)
		})
}

// BusinessesByEmail returns one page of businesses with (or without) an email.
func (c *Client) BusinessesByEmail(ctx context.Context, hasEmail bool, page, size int) (model.Page, error) {
	return getJSON[model.Page](ctx, c, "businesses by email", "/businesses/filter/email",
		func(r *resty.Request) {
			pageParams(page, size)(r)
			r.SetQueryParam("hasEmail", strconv.FormatBool(hasEmail))
		})
}

// BusinessesByCountry returns one page of businesses in country.
func (c *Client) BusinessesByCountry(ctx context.Context, country string, page, size int) (model.Page, error) {
	return getJSON[model.Page](ctx, c, "businesses by country", "/businesses/filter/country",
		func(r *resty.Request) {
			pageParams(page, size)(r)
			r.SetQueryParam("country", country)
		})
}

// Export formats accepted by the server.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Export is a server-generated export blob.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportFilename is the download name for an export produced at t.
func ExportFilename(format string, t time.Time) string {
	return fmt.Sprintf("business_export_%s.%s", t.UTC().Format("20060102T150405"), format)
}

// Export asks the server to render the current results as format.
func (c *Client) Export(ctx context.Context, format string) (Export, error) {
	const op = "export"
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatCSV && format != FormatXLSX {
		return Export{}, fmt.Errorf("%s %q: %w", op, format, ErrUnsupportedFormat)
	}

	req, err := c.request(ctx, op)
	if err != nil {
		return Export{}, err
	}
	res, err := req.
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "*/*").
		SetBody(map[string]string{"format": format}).
		Post("/export")
	if err := c.check(op, res, err); err != nil {
		return Export{}, err
	}

	contentType := res.Header().Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(res.Body())
	}
	exp := Export{
		Filename:    ExportFilename(format, c.now()),
		ContentType: contentType,
		Data:        res.Body(),
	}
	c.logger.Info("export received",
		zap.String("format", format),
		zap.Int("bytes", len(exp.Data)),
		zap.String("filename", exp.Filename),
	)
	return exp, nil
}
