package match

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"offerflow/internal"
	"offerflow/internal/catalog"
	"offerflow/internal/erp"
	"offerflow/internal/util"
)

const maxCandidates = 5

const priorityBias = 0.05

type Thresholds struct {
	OK     float64
	Review float64
	Gap    float64
}

type Matcher struct {
	products erp.ProductLookup
	th       Thresholds
	log      *zap.Logger
}

func NewMatcher(products erp.ProductLookup, th Thresholds, log *zap.Logger) *Matcher {
	return &Matcher{products: products, th: th, log: log}
}

func (m *Matcher) Match(ctx context.Context, items []internal.ExtractionItem) ([]internal.ProductMatch, error) {
	exact, err := m.exactByCode(ctx, items)
	if err != nil {
		return nil, err
	}

	out := make([]internal.ProductMatch, 0, len(items))
	for _, item := range items {
		term := itemTerm(item)
		if p, ok := exact[util.NormalizeCode(term)]; ok && p != nil {
			out = append(out, m.finish(item, internal.ProductMatch{
				RequestedTerm: term,
				RequestedQty:  qtyOf(item),
				Unit:          item.Unit,
				Product:       p,
				Confidence:    normalizeConfidence(0.99),
				Method:        internal.MatchExact,
				Detail:        map[string]any{"code": p.Code},
			}))
			continue
		}

		mr, err := m.wildcardMatch(ctx, item, term)
		if err != nil {
			return nil, err
		}
		out = append(out, m.finish(item, mr))
	}
	return out, nil
}

func (m *Matcher) exactByCode(ctx context.Context, items []internal.ExtractionItem) (map[string]*internal.Product, error) {
	var codes []string
	for _, item := range items {
		term := itemTerm(item)
		if util.LooksLikeCode(term) {
			codes = append(codes, term)
		}
	}
	if len(codes) == 0 {
		return map[string]*internal.Product{}, nil
	}

	found, missing, err := m.products.LookupCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("batch code lookup: %w", err)
	}
	if len(missing) > 0 {
		m.log.Debug("codes not in catalog", zap.Strings("codes", missing))
	}

	out := make(map[string]*internal.Product, len(found))
	for _, row := range found {
		p, err := m.products.FindByCode(ctx, row.Code)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", row.Code, err)
		}
		if p != nil {
			out[util.NormalizeCode(row.Code)] = p
		}
	}
	return out, nil
}

func (m *Matcher) wildcardMatch(ctx context.Context, item internal.ExtractionItem, term string) (internal.ProductMatch, error) {
	base := internal.ProductMatch{
		RequestedTerm: term,
		RequestedQty:  qtyOf(item),
		Unit:          item.Unit,
		Method:        internal.MatchWildcard,
	}

	tokens := util.Tokenize(term)
	if len(tokens) == 0 {
		base.Method = internal.MatchFallback
		base.Detail = map[string]any{"reason": "no searchable tokens"}
		return base, nil
	}

	ranked, err := m.probe(ctx, term, tokens)
	if err != nil {
		return base, err
	}

	// Dropping tokens can only grow the result set.
	method := internal.MatchWildcard
	for probe := tokens; len(ranked) == 0 && len(probe) > 1; {
		probe = dropWeakestToken(probe)
		method = internal.MatchFallback
		ranked, err = m.probe(ctx, term, probe)
		if err != nil {
			return base, err
		}
	}
	base.Method = method

	if len(ranked) == 0 {
		base.Method = internal.MatchFallback
		base.Detail = map[string]any{"reason": "no catalog rows matched", "tokens": tokens}
		return base, nil
	}

	top := ranked[0]
	gap := top.score
	if len(ranked) > 1 {
		gap = top.score - ranked[1].score
	}

	base.Confidence = normalizeConfidence(top.score)
	base.Detail = map[string]any{
		"pattern":    strings.Join(tokens, catalog.WildcardDelimiter),
		"candidates": candidateCodes(ranked),
	}

	confident := top.score >= m.th.OK && gap >= m.th.Gap
	review := top.score >= m.th.Review
	if !confident && !review {
		base.Product = nil
		return base, nil
	}

	p, err := m.products.FindByCode(ctx, top.row.Code)
	if err != nil {
		return base, fmt.Errorf("resolve product %s: %w", top.row.Code, err)
	}
	base.Product = p
	return base, nil
}

type scoredRow struct {
	row   internal.CatalogRow
	score float64
}

func (m *Matcher) probe(ctx context.Context, term string, tokens []string) ([]scoredRow, error) {
	pattern := strings.Join(tokens, catalog.WildcardDelimiter)
	rows, err := m.products.WildcardSearch(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("wildcard search %q: %w", pattern, err)
	}

	query := util.NormalizeHeader(term)
	queryTokens := util.Tokenize(query)
	out := make([]scoredRow, 0, len(rows))
	for _, row := range rows {
		text := rowText(row)
		score := scoreRow(query, text, queryTokens)
		if row.Priority {
			score += priorityBias
		}
		if score > 1 {
			score = 1
		}
		out = append(out, scoredRow{row: row, score: score})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out, nil
}

// A missing or non-positive quantity caps confidence into the review band.
func (m *Matcher) finish(item internal.ExtractionItem, mr internal.ProductMatch) internal.ProductMatch {
	if item.Qty != nil && *item.Qty > 0 {
		return mr
	}
	if mr.Confidence > 70 {
		mr.Confidence = 70
	}
	return mr
}

func scoreRow(query, candidate string, queryTokens []string) float64 {
	dice := util.DiceCoefficient(query, candidate)
	if len(queryTokens) == 0 {
		return dice
	}

	candidateTokens := map[string]struct{}{}
	for _, t := range util.Tokenize(candidate) {
		candidateTokens[t] = struct{}{}
	}
	overlap := 0
	for _, t := range queryTokens {
		if _, ok := candidateTokens[t]; ok {
			overlap++
		}
	}
	tokenScore := float64(overlap) / float64(len(queryTokens))
	return 0.65*dice + 0.35*tokenScore
}

// Scores at or below 1 are treated as a 0..1 fraction.
func normalizeConfidence(score float64) int {
	if score <= 1 {
		score *= 100
	}
	n := int(math.Round(score))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func dropWeakestToken(tokens []string) []string {
	if len(tokens) <= 1 {
		return tokens
	}
	shortest := 0
	for i, t := range tokens {
		if len(t) < len(tokens[shortest]) {
			shortest = i
		}
	}
	out := make([]string, 0, len(tokens)-1)
	out = append(out, tokens[:shortest]...)
	out = append(out, tokens[shortest+1:]...)
	return out
}

func rowText(row internal.CatalogRow) string {
	parts := make([]string, 0, len(row.Columns)+1)
	parts = append(parts, row.Code)
	keys := make([]string, 0, len(row.Columns))
	for k := range row.Columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, row.Columns[k])
	}
	return strings.Join(parts, " ")
}

func candidateCodes(ranked []scoredRow) []string {
	out := make([]string, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, c.row.Code)
	}
	return out
}

func itemTerm(item internal.ExtractionItem) string {
	if item.NameOrCode != nil && *item.NameOrCode != "" {
		return *item.NameOrCode
	}
	return strings.TrimSpace(item.RawLine)
}

func qtyOf(item internal.ExtractionItem) float64 {
	if item.Qty == nil {
		return 0
	}
	return *item.Qty
}
