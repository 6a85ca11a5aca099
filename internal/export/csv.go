// Package export writes business records to local files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/natefinch/atomic"

	"github.com/egemenmermer/business-extractor/internal/model"
)

// Header is the CSV header row, in wire field names.
var Header = []string{
	"id", "businessName", "realCategory", "category", "address", "city",
	"state", "postalCode", "country", "phone", "email", "website",
	"latitude", "longitude", "mapsLink", "detailsLink",
}

func record(b model.Business) []string {
	return []string{
		b.ID,
		b.BusinessName,
		b.RealCategory,
		b.Category,
		b.Address,
		b.City,
		b.State,
		b.PostalCode,
		b.Country,
		b.Phone,
		b.Email,
		b.Website,
		strconv.FormatFloat(b.Latitude, 'f', 6, 64),
		strconv.FormatFloat(b.Longitude, 'f', 6, 64),
		b.MapsLink,
		b.DetailsLink,
	}
}

// WriteCSV writes the header and one row per business.
func WriteCSV(w io.Writer, items []model.Business) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, b := range items {
		if err := cw.Write(record(b)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile replaces path with a CSV of items. A reader never sees a
// partially written file.
func WriteCSVFile(path string, items []model.Business) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, items); err != nil {
		return fmt.Errorf("encoding csv: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
