package record

import (
	"fmt"
	"strconv"
	"strings"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

// Op is a selector comparison operator.
type Op string

// Supported operators. Longer operators are listed first so parsing picks
// ">=" over ">".
const (
	OpNotEqual     Op = "!="
	OpGreaterEqual Op = ">="
	OpLessEqual    Op = "<="
	OpContains     Op = "%="
	OpPrefix       Op = "^="
	OpEqual        Op = "="
	OpGreater      Op = ">"
	OpLess         Op = "<"
)

var operators = []Op{OpNotEqual, OpGreaterEqual, OpLessEqual, OpContains, OpPrefix, OpEqual, OpGreater, OpLess}

// Term is one "key<op>value" clause. Values separated by "|" are
// alternatives.
type Term struct {
	Key    string
	Op     Op
	Values []string
}

// Selector is a conjunction of terms. The empty selector matches every
// record.
//
// Keys: id, title, template, author_ref, files (attachment count), and any
// other name is looked up in the record's free-form fields.
type Selector struct {
	Raw   string
	Terms []Term
}

// ParseSelector parses "key=value, key2>3, title%=annual|yearly".
func ParseSelector(s string) (Selector, error) {
	sel := Selector{Raw: strings.TrimSpace(s)}
	if sel.Raw == "" {
		return sel, nil
	}

	for _, part := range strings.Split(sel.Raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		term, err := parseTerm(part)
		if err != nil {
			return Selector{}, fserrors.New(fserrors.ErrCodeInvalidSelector,
				fmt.Sprintf("invalid selector %q", s), err).WithDetail("term", part)
		}
		sel.Terms = append(sel.Terms, term)
	}
	return sel, nil
}

// MustParseSelector is ParseSelector for constant selectors.
func MustParseSelector(s string) Selector {
	sel, err := ParseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

func parseTerm(part string) (Term, error) {
	idx, op := -1, Op("")
	for i := 0; i < len(part) && idx < 0; i++ {
		for _, candidate := range operators {
			if strings.HasPrefix(part[i:], string(candidate)) {
				idx, op = i, candidate
				break
			}
		}
	}
	if idx <= 0 {
		return Term{}, fmt.Errorf("expected key<op>value")
	}

	key := strings.ToLower(strings.TrimSpace(part[:idx]))
	raw := strings.TrimSpace(part[idx+len(op):])
	values := strings.Split(raw, "|")
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}

	switch op {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		if len(values) != 1 {
			return Term{}, fmt.Errorf("%s takes a single value", op)
		}
		if _, err := strconv.ParseFloat(values[0], 64); err != nil {
			return Term{}, fmt.Errorf("%s needs a number, got %q", op, values[0])
		}
	}
	return Term{Key: key, Op: op, Values: values}, nil
}

// Matches reports whether rec satisfies every term.
func (s Selector) Matches(rec *Record) bool {
	for _, t := range s.Terms {
		if !t.matches(rec) {
			return false
		}
	}
	return true
}

// String returns the selector source.
func (s Selector) String() string {
	return s.Raw
}

func (t Term) matches(rec *Record) bool {
	actual := lookup(rec, t.Key)

	switch t.Op {
	case OpNotEqual:
		for _, v := range t.Values {
			if actual == v {
				return false
			}
		}
		return true
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		a, err := strconv.ParseFloat(actual, 64)
		if err != nil {
			return false
		}
		b, _ := strconv.ParseFloat(t.Values[0], 64)
		switch t.Op {
		case OpGreater:
			return a > b
		case OpLess:
			return a < b
		case OpGreaterEqual:
			return a >= b
		default:
			return a <= b
		}
	}

	for _, v := range t.Values {
		switch t.Op {
		case OpEqual:
			if actual == v {
				return true
			}
		case OpContains:
			if strings.Contains(strings.ToLower(actual), strings.ToLower(v)) {
				return true
			}
		case OpPrefix:
			if strings.HasPrefix(strings.ToLower(actual), strings.ToLower(v)) {
				return true
			}
		}
	}
	return false
}

func lookup(rec *Record, key string) string {
	switch key {
	case "id":
		return strconv.FormatInt(rec.ID, 10)
	case "title":
		return rec.Title
	case "template":
		return rec.Template
	case "author_ref", "author":
		return strconv.FormatInt(rec.AuthorRef, 10)
	case "files":
		return strconv.Itoa(len(rec.Attachments))
	}
	return rec.Fields[key]
}
