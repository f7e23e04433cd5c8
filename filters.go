package textline

import (
	"bytes"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Filter is a predicate applied to a line. Lines arrive with their
// terminator still attached.
type Filter func(line []byte) bool

const blankBytes = " \t\r\n"

// FilterNotBlank keeps lines containing at least one non-whitespace byte.
// Terminators count as whitespace, so a terminator-only line is blank.
func FilterNotBlank() Filter {
	return func(line []byte) bool {
		return len(bytes.Trim(line, blankBytes)) > 0
	}
}

// FilterJSONObject keeps lines whose first non-whitespace byte is '{'.
func FilterJSONObject() Filter {
	return func(line []byte) bool {
		trimmed := bytes.TrimLeft(line, blankBytes)
		return len(trimmed) > 0 && trimmed[0] == '{'
	}
}

// JSONValueFilter is a predicate on a decoded json value.
type JSONValueFilter func(val interface{}) bool

// JSONFieldFilter applies a JSONValueFilter to one field of a json object.
type JSONFieldFilter struct {
	Field  string
	Filter JSONValueFilter
}

// FilterJSONFields keeps lines that are json objects where every field
// filter finds its field and passes. A line missing any filtered field is
// dropped.
func FilterJSONFields(filters []JSONFieldFilter) Filter {
	return func(line []byte) bool {
		iter := jsoniter.ConfigFastest.BorrowIterator(line)
		defer jsoniter.ConfigFastest.ReturnIterator(iter)
		done := make([]bool, len(filters))
		allDone := func() bool {
			for _, b := range done {
				if !b {
					return false
				}
			}
			return true
		}
		passed := true
		iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
			// Each object field's value must be consumed exactly once,
			// either by the one filter that claims it or by a single Skip.
			match := -1
			for i := range filters {
				if !done[i] && filters[i].Field == field {
					match = i
					break
				}
			}
			if match < 0 {
				iter.Skip()
				return true
			}
			val := iter.ReadAny().GetInterface()
			done[match] = true
			passed = filters[match].Filter(val)
			return passed && !allDone()
		})
		return passed && allDone()
	}
}

// StringValueFilter adapts a string predicate into a JSONValueFilter.
// Non-string values fail.
func StringValueFilter(keep func(val string) bool) JSONValueFilter {
	return func(val interface{}) bool {
		strVal, ok := val.(string)
		if !ok {
			return false
		}
		return keep(strVal)
	}
}

// TimeValueFilter adapts a time predicate into a JSONValueFilter for
// RFC3339 string values. Values that do not parse fail.
func TimeValueFilter(keep func(val time.Time) bool) JSONValueFilter {
	return StringValueFilter(func(val string) bool {
		tm, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return false
		}
		return keep(tm)
	})
}
