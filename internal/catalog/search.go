package catalog

import (
	"strings"

	"offerflow/internal"
	"offerflow/internal/util"
)

const PriorityGroupThreshold = 1000

const WildcardDelimiter = "%"

func IsPriorityGroup(groupCode int) bool {
	return groupCode < PriorityGroupThreshold
}

type Searcher struct {
	rows []internal.CatalogRow
}

func NewSearcher(rows []internal.CatalogRow) *Searcher {
	classified := make([]internal.CatalogRow, len(rows))
	for i, row := range rows {
		row.Priority = IsPriorityGroup(row.GroupCode)
		classified[i] = row
	}
	return &Searcher{rows: classified}
}

func (s *Searcher) LookupCodes(codes []string) (found []internal.CatalogRow, missing []string) {
	byCode := make(map[string]internal.CatalogRow, len(s.rows))
	for _, row := range s.rows {
		byCode[util.NormalizeCode(row.Code)] = row
	}

	seen := map[string]struct{}{}
	for _, code := range codes {
		norm := util.NormalizeCode(code)
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}

		if row, ok := byCode[norm]; ok {
			found = append(found, row)
		} else {
			missing = append(missing, code)
		}
	}
	return found, missing
}

func (s *Searcher) WildcardSearch(pattern string) []internal.CatalogRow {
	tokens := splitPattern(pattern)
	if len(tokens) == 0 {
		return nil
	}

	var out []internal.CatalogRow
	for _, row := range s.rows {
		if rowMatchesAll(row, tokens) {
			out = append(out, row)
		}
	}
	return out
}

func splitPattern(pattern string) []string {
	parts := strings.Split(pattern, WildcardDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func rowMatchesAll(row internal.CatalogRow, tokens []string) bool {
	for _, token := range tokens {
		if !tokenInRow(row, token) {
			return false
		}
	}
	return true
}

func tokenInRow(row internal.CatalogRow, token string) bool {
	if strings.Contains(strings.ToLower(row.Code), token) {
		return true
	}
	for _, value := range row.Columns {
		if strings.Contains(strings.ToLower(value), token) {
			return true
		}
	}
	return false
}
