// Package sanitize makes dataset records safe to write into spreadsheet cells.
package sanitize

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sells-group/bench-export/internal/jsontext"
	"github.com/sells-group/bench-export/internal/model"
)

// isIllegal reports whether r is one of the control characters spreadsheet
// XML cannot carry: U+0000-U+0008, U+000B, U+000C and U+000E-U+001F.
// Tab, line feed and carriage return are kept.
func isIllegal(r rune) bool {
	return r <= 0x08 || r == 0x0b || r == 0x0c || (r >= 0x0e && r <= 0x1f)
}

// String removes illegal control characters from s and leaves every other
// rune untouched.
func String(s string) string {
	if strings.IndexFunc(s, isIllegal) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isIllegal(r) {
			return -1
		}
		return r
	}, s)
}

// CitationsField always holds text in a sanitized record.
const CitationsField = "citations"

// Record returns a sanitized copy of rec in which every field holds a scalar
// cell value. Strings are stripped, numbers and bools pass through, and
// structured values become their JSON text. The citations field is always
// text: a list becomes JSON and a scalar its printed form.
// The input is never modified.
func Record(rec model.Record) model.Record {
	out := make(model.Record, len(rec))
	for k, v := range rec {
		if k == CitationsField {
			out[k] = Citations(v)
			continue
		}
		out[k] = Value(v)
	}
	return out
}

// Citations renders a citations value as text. Scalars print the way Python's
// str does (True, 3.0); nil stays nil.
func Citations(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float32:
		return jsontext.FormatFloat(float64(x))
	case float64:
		return jsontext.FormatFloat(x)
	}
	if s, ok := Value(v).(string); ok {
		return s
	}
	return String(fmt.Sprint(v))
}

// Value sanitizes a single field value. Unknown types fall back to their fmt
// string form.
func Value(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return String(x)
	case []byte:
		return String(string(x))
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return x
	}

	if isStructured(v) {
		// ASCII-escaped JSON carries no raw control characters.
		return jsontext.Encode(v, true)
	}
	return String(fmt.Sprint(v))
}

func isStructured(v any) bool {
	if _, ok := v.(jsontext.Object); ok {
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return false
	}
}
