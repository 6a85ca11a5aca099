package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egemenmermer/business-extractor/internal/model"
)

func ids(items []model.Business) []string {
	out := make([]string, len(items))
	for i, b := range items {
		out[i] = b.ID
	}
	return out
}

var sample = []model.Business{
	{ID: "1", BusinessName: "Zed Bar", Address: "Café de Paris", City: "Lyon", Latitude: 45.7},
	{ID: "2", BusinessName: "alpha Bakery", City: "Paris", Email: "hi@alpha.fr", Latitude: 48.8},
	{ID: "3", BusinessName: "Éclair House", City: "Nice", Phone: "+33 4 93", Latitude: 43.7},
	{ID: "4", BusinessName: "Bistro", Category: "restaurant", Latitude: -1},
}

func TestSearchCaseFolding(t *testing.T) {
	tests := []struct {
		term string
		want []string
	}{
		{"café", []string{"1"}},
		{"CAFÉ DE", []string{"1"}},
		{"paris", []string{"1", "2"}},
		{"ALPHA.FR", []string{"2"}},
		{"+33", []string{"3"}},
		{"RESTAURANT", []string{"4"}},
		{"  ", []string{"1", "2", "3", "4"}},
		{"nomatch", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(Search(sample, tt.term))); diff != "" {
				t.Errorf("Search(%q) mismatch (-want +got):\n%s", tt.term, diff)
			}
		})
	}
}

func TestSortToggle(t *testing.T) {
	s := DefaultSort
	assert.Equal(t, Sort{ColumnName, Ascending}, s)

	s = s.Toggle(ColumnName)
	assert.Equal(t, Descending, s.Direction)
	s = s.Toggle(ColumnName)
	assert.Equal(t, Ascending, s.Direction)

	s = s.Toggle(ColumnName).Toggle(ColumnCity)
	assert.Equal(t, Sort{ColumnCity, Ascending}, s)
}

func TestSortByNameUsesCollation(t *testing.T) {
	asc := DefaultSort.Apply(sample)
	assert.Equal(t, []string{"2", "4", "3", "1"}, ids(asc))

	desc := DefaultSort.Toggle(ColumnName).Apply(sample)
	assert.Equal(t, []string{"1", "3", "4", "2"}, ids(desc))
	assert.Len(t, desc, len(sample))

	// Input is untouched.
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(sample))
}

func TestSortNumericColumns(t *testing.T) {
	got := Sort{Column: ColumnLatitude}.Apply(sample)
	assert.Equal(t, []string{"4", "3", "1", "2"}, ids(got))
}

func TestSortIsStable(t *testing.T) {
	items := []model.Business{
		{ID: "a", City: "Paris"},
		{ID: "b", City: "Lyon"},
		{ID: "c", City: "Paris"},
		{ID: "d", City: "Lyon"},
	}
	got := Sort{Column: ColumnCity}.Apply(items)
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(got))
}

func TestView(t *testing.T) {
	got := View(sample, "paris", Sort{Column: ColumnName, Direction: Descending})
	assert.Equal(t, []string{"1", "2"}, ids(got))
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("city:desc")
	require.NoError(t, err)
	assert.Equal(t, Sort{ColumnCity, Descending}, s)

	s, err = ParseSort("latitude")
	require.NoError(t, err)
	assert.Equal(t, Sort{ColumnLatitude, Ascending}, s)

	_, err = ParseSort("rating")
	assert.Error(t, err)
	_, err = ParseSort("city:sideways")
	assert.Error(t, err)
}
