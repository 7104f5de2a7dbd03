package search

import (
	"fmt"
	"strconv"
)

// UnitKey identifies one indexed unit: a whole attachment, or one page of it
// when Page > 0.
//
// String() is injective. The record id is all digits, so the first "_"
// always ends it; and "/" cannot appear in a filename, so page keys
// ("12_a.pdf/page-3") never collide with whole-document keys ("12_a.pdf").
// Every page key starts with its document key.
type UnitKey struct {
	RecordID int64
	Filename string
	Page     int
}

// NewUnitKey returns the key of a whole attachment.
func NewUnitKey(recordID int64, filename string) UnitKey {
	return UnitKey{RecordID: recordID, Filename: filename}
}

// PageKey returns the key of one page of an attachment.
func PageKey(recordID int64, filename string, page int) UnitKey {
	return UnitKey{RecordID: recordID, Filename: filename, Page: page}
}

// Document returns the key of the whole attachment this unit belongs to.
func (k UnitKey) Document() UnitKey {
	return UnitKey{RecordID: k.RecordID, Filename: k.Filename}
}

// String returns the backend document id.
func (k UnitKey) String() string {
	if k.Page > 0 {
		return fmt.Sprintf("%d_%s/page-%d", k.RecordID, k.Filename, k.Page)
	}
	return fmt.Sprintf("%d_%s", k.RecordID, k.Filename)
}

// RecordPrefix extracts the record id from a leading "<digits>_" in s. It is
// how hits from older indexes, which lack an owning-record field, are
// attributed.
func RecordPrefix(s string) (int64, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(s) || s[i] != '_' {
		return 0, false
	}
	id, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
