package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerflow/internal"
)

func testRows() []internal.CatalogRow {
	return []internal.CatalogRow{
		{Code: "CBL-100", GroupCode: 120, Columns: map[string]string{
			"name": "Cable NYM-J 3x2.5", "unit": "m", "manufacturer": "Helukabel",
		}},
		{Code: "CBL-200", GroupCode: 120, Columns: map[string]string{
			"name": "Cable NYM-J 5x1.5", "unit": "m", "manufacturer": "Helukabel",
		}},
		{Code: "BOX-10", GroupCode: 2400, Columns: map[string]string{
			"name": "Junction box IP65", "unit": "pcs", "manufacturer": "Spelsberg",
		}},
	}
}

func TestLookupCodesPartition(t *testing.T) {
	s := NewSearcher(testRows())
	input := []string{"CBL-100", "NOPE-1", "BOX-10", "NOPE-2"}

	found, missing := s.LookupCodes(input)

	require.Len(t, found, 2)
	require.Len(t, missing, 2)
	assert.Equal(t, []string{"NOPE-1", "NOPE-2"}, missing)

	got := map[string]bool{}
	for _, row := range found {
		got[row.Code] = true
	}
	for _, code := range missing {
		require.False(t, got[code])
		got[code] = true
	}
	for _, code := range input {
		assert.True(t, got[code], "code %s unaccounted for", code)
	}
}

func TestLookupCodesNormalizesAndDedupes(t *testing.T) {
	s := NewSearcher(testRows())
	found, missing := s.LookupCodes([]string{"cbl-100", "CBL-100"})
	assert.Len(t, found, 1)
	assert.Empty(t, missing)
}

func TestWildcardSearchTokensMayHitDifferentColumns(t *testing.T) {
	s := NewSearcher(testRows())

	rows := s.WildcardSearch("nym%helukabel")
	assert.Len(t, rows, 2)

	rows = s.WildcardSearch("nym%3x2.5")
	require.Len(t, rows, 1)
	assert.Equal(t, "CBL-100", rows[0].Code)

	rows = s.WildcardSearch("box-10%spelsberg")
	require.Len(t, rows, 1)
	assert.Equal(t, "BOX-10", rows[0].Code)
}

func TestWildcardSearchCorrectness(t *testing.T) {
	s := NewSearcher(testRows())

	rows := s.WildcardSearch("NYM%PCS")
	assert.Empty(t, rows)

	for _, row := range s.WildcardSearch("cable%m") {
		joined := strings.ToLower(row.Code)
		for _, v := range row.Columns {
			joined += " " + strings.ToLower(v)
		}
		assert.Contains(t, joined, "cable")
		assert.Contains(t, joined, "m")
	}
}

func TestWildcardSearchRemovingTokenNeverShrinks(t *testing.T) {
	s := NewSearcher(testRows())
	full := s.WildcardSearch("cable%nym%helukabel")
	fewer := s.WildcardSearch("cable%nym")
	assert.GreaterOrEqual(t, len(fewer), len(full))
}

func TestWildcardSearchEmptyPattern(t *testing.T) {
	s := NewSearcher(testRows())
	assert.Empty(t, s.WildcardSearch(""))
	assert.Empty(t, s.WildcardSearch("%%%"))
	assert.Empty(t, s.WildcardSearch("  %  "))
}

func TestPriorityClassification(t *testing.T) {
	s := NewSearcher(testRows())
	rows := s.WildcardSearch("cable")
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.True(t, row.Priority)
	}

	rows = s.WildcardSearch("junction")
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Priority)
}
