package models

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
	floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// Int is an integer field decoded leniently from backend and form payloads.
// Numbers are truncated, numeric strings are read up to the first non-digit
// and anything else decodes to zero.
type Int int

// UnmarshalJSON implements json.Unmarshaler.
func (n *Int) UnmarshalJSON(data []byte) error {
	*n = Int(ParseInt(rawScalar(data)))
	return nil
}

// Float is the floating point counterpart of Int.
type Float float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	*f = Float(ParseFloat(rawScalar(data)))
	return nil
}

// Text is a free-form string field. Backends occasionally send numbers or
// booleans where a string is expected; those are kept in their literal form.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	switch v := rawScalar(data).(type) {
	case string:
		*t = Text(v)
	case json.Number:
		*t = Text(v.String())
	case bool:
		*t = Text(strconv.FormatBool(v))
	default:
		*t = ""
	}
	return nil
}

func (t Text) String() string { return string(t) }

// ID is an opaque identifier. Numeric ids are kept as their decimal text and
// populated references ({"_id": ...}) collapse to the referenced id.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var ref struct {
			ID    ID `json:"id"`
			OID   ID `json:"_id"`
			Oid   ID `json:"$oid"`
			Value ID `json:"value"`
		}
		if err := json.Unmarshal(data, &ref); err != nil {
			*id = ""
			return nil
		}
		*id = firstID(ref.ID, ref.OID, ref.Oid, ref.Value)
		return nil
	}

	var t Text
	_ = t.UnmarshalJSON(data)
	*id = ID(t)
	return nil
}

func (id ID) String() string { return string(id) }

func firstID(ids ...ID) ID {
	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}

// ParseInt mirrors the lenient integer parsing used by form submissions:
// base 10, leading numeric prefix only, zero when nothing parses.
func ParseInt(value any) int {
	switch v := value.(type) {
	case nil:
		return 0
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case Int:
		return int(v)
	case float64:
		return truncate(v)
	case float32:
		return truncate(float64(v))
	case Float:
		return truncate(float64(v))
	case json.Number:
		return truncate(ParseFloat(v.String()))
	case Text:
		return ParseInt(string(v))
	case string:
		match := intPrefix.FindString(strings.TrimSpace(v))
		if match == "" {
			return 0
		}
		n, err := strconv.Atoi(match)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// ParseFloat is the floating point counterpart of ParseInt. NaN and
// infinities collapse to zero.
func ParseFloat(value any) float64 {
	var out float64
	switch v := value.(type) {
	case nil:
		return 0
	case int:
		out = float64(v)
	case int32:
		out = float64(v)
	case int64:
		out = float64(v)
	case Int:
		out = float64(v)
	case float64:
		out = v
	case float32:
		out = float64(v)
	case Float:
		out = float64(v)
	case json.Number:
		return ParseFloat(v.String())
	case Text:
		return ParseFloat(string(v))
	case string:
		match := floatPrefix.FindString(strings.TrimSpace(v))
		if match == "" {
			return 0
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return 0
		}
		out = f
	default:
		return 0
	}

	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0
	}
	return out
}

// truncate drops the fraction. Values int cannot represent become zero.
func truncate(v float64) int {
	if math.IsNaN(v) || v >= float64(math.MaxInt) || v < float64(math.MinInt) {
		return 0
	}
	return int(math.Trunc(v))
}

// rawScalar decodes a JSON scalar into string, json.Number, bool or nil.
// Objects and arrays yield nil.
func rawScalar(data []byte) any {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}

	switch v.(type) {
	case string, json.Number, bool:
		return v
	default:
		return nil
	}
}
