// Package keywords loads keyword research sheets. Real-world exports name
// their columns inconsistently, so the loader maps common header variants
// onto the keyword and volume columns.
package keywords

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/clustra-io/clustra/internal/domain"
)

// Exact header variants for the keyword column.
var keywordHeaders = []string{
	"keyword", "keywords", "query", "queries", "search query",
	"search queries", "search term", "search terms", "term",
	"terms", "kw", "search", "phrase", "phrases",
}

// Exact header variants for the volume column.
var volumeHeaders = []string{
	"volume", "search volume", "monthly search volume", "msv",
	"sv", "searches", "monthly searches", "avg monthly searches",
	"search vol", "monthly volume", "avg searches", "search count",
	"monthly search", "monthly search count",
}

// Partial fallbacks, tried only when no exact variant matches.
var keywordFragments = []string{"keyword", "query", "term", "phrase"}
var volumeFragments = []string{"volume", "search", "msv", "sv"}

// Load parses a keyword CSV. The first row must be a header; column order
// does not matter and extra columns are ignored. Keyword texts are trimmed
// and lowercased, empties and duplicates dropped. A missing or unparsable
// volume cell yields an unknown volume, not zero. A sheet without any
// recognizable keyword column is rejected with ErrInvalidInput.
func Load(r io.Reader) ([]domain.KeywordRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV: %w", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	keywordCol := findColumn(header, keywordHeaders, keywordFragments, -1)
	if keywordCol < 0 {
		return nil, fmt.Errorf("no keyword column among [%s]: %w",
			strings.Join(header, ", "), domain.ErrInvalidInput)
	}
	volumeCol := findColumn(header, volumeHeaders, volumeFragments, keywordCol)

	var records []domain.KeywordRecord
	seen := make(map[string]struct{})
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		if keywordCol >= len(row) {
			continue
		}

		text := strings.ToLower(strings.TrimSpace(row[keywordCol]))
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}

		rec, err := parseRecord(text, row, volumeCol)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseRecord(text string, row []string, volumeCol int) (domain.KeywordRecord, error) {
	if volumeCol < 0 || volumeCol >= len(row) {
		return domain.NewKeywordRecordUnknownVolume(text)
	}

	raw := strings.TrimSpace(strings.ReplaceAll(row[volumeCol], ",", ""))
	if raw == "" {
		return domain.NewKeywordRecordUnknownVolume(text)
	}

	volume, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Sheets carry junk like "10-100" or "<10"; treat as unknown.
		return domain.NewKeywordRecordUnknownVolume(text)
	}
	if volume < 0 {
		return domain.KeywordRecord{}, fmt.Errorf(
			"keyword %q has negative volume %d: %w", text, volume, domain.ErrInvalidInput)
	}
	return domain.NewKeywordRecord(text, volume)
}

// findColumn matches a header against exact variants first, then partial
// fragments. Underscores and dashes are treated as spaces. skip excludes a
// column already claimed (the volume fallback must not re-match the keyword
// column).
func findColumn(header []string, exact, fragments []string, skip int) int {
	cleaned := make([]string, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.ReplaceAll(h, "_", " ")
		h = strings.ReplaceAll(h, "-", " ")
		cleaned[i] = strings.TrimSpace(h)
	}

	for i, h := range cleaned {
		if i == skip {
			continue
		}
		for _, want := range exact {
			if h == want {
				return i
			}
		}
	}

	for i, h := range cleaned {
		if i == skip {
			continue
		}
		for _, frag := range fragments {
			if strings.Contains(h, frag) {
				return i
			}
		}
	}

	return -1
}
