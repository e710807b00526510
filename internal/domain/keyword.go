package domain

import (
	"fmt"
	"strings"
)

// KeywordRecord pairs a keyword phrase with its search volume. Volume may be
// unknown when the source sheet has no volume column; VolumeKnown
// distinguishes that from an explicit zero.
type KeywordRecord struct {
	Text        string
	Volume      int64
	VolumeKnown bool
}

// NewKeywordRecord builds a record with a known volume. Text is trimmed;
// empty text and negative volume are rejected.
func NewKeywordRecord(text string, volume int64) (KeywordRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return KeywordRecord{}, fmt.Errorf("keyword text is empty: %w", ErrInvalidInput)
	}
	if volume < 0 {
		return KeywordRecord{}, fmt.Errorf("keyword %q has negative volume %d: %w", text, volume, ErrInvalidInput)
	}
	return KeywordRecord{Text: text, Volume: volume, VolumeKnown: true}, nil
}

// NewKeywordRecordUnknownVolume builds a record with no volume data.
func NewKeywordRecordUnknownVolume(text string) (KeywordRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return KeywordRecord{}, fmt.Errorf("keyword text is empty: %w", ErrInvalidInput)
	}
	return KeywordRecord{Text: text}, nil
}
