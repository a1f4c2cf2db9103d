package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MetadataKind tags the variant held by a MetadataValue
type MetadataKind uint8

const (
	MetadataString MetadataKind = iota + 1
	MetadataNumber
	MetadataBool
)

func (k MetadataKind) String() string {
	switch k {
	case MetadataString:
		return "string"
	case MetadataNumber:
		return "number"
	case MetadataBool:
		return "bool"
	default:
		return "invalid"
	}
}

// MetadataValue holds exactly one of a string, a number or a boolean.
// Objects, arrays and null are rejected when decoding.
type MetadataValue struct {
	kind MetadataKind
	str  string
	num  float64
	flag bool
}

func StringValue(s string) MetadataValue  { return MetadataValue{kind: MetadataString, str: s} }
func NumberValue(n float64) MetadataValue { return MetadataValue{kind: MetadataNumber, num: n} }
func BoolValue(b bool) MetadataValue      { return MetadataValue{kind: MetadataBool, flag: b} }

func (v MetadataValue) Kind() MetadataKind { return v.kind }

// Str returns the string variant and whether v holds one
func (v MetadataValue) Str() (string, bool) { return v.str, v.kind == MetadataString }

// Num returns the number variant and whether v holds one
func (v MetadataValue) Num() (float64, bool) { return v.num, v.kind == MetadataNumber }

// Bool returns the boolean variant and whether v holds one
func (v MetadataValue) Bool() (bool, bool) { return v.flag, v.kind == MetadataBool }

func (v MetadataValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case MetadataString:
		return json.Marshal(v.str)
	case MetadataNumber:
		return json.Marshal(v.num)
	case MetadataBool:
		return json.Marshal(v.flag)
	default:
		return nil, fmt.Errorf("metadata value has no variant")
	}
}

func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty metadata value")
	}

	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case c == 't' || c == 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case c == '-' || (c >= '0' && c <= '9'):
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid metadata number %s: %w", data, err)
		}
		*v = NumberValue(n)
	case c == 'n':
		return fmt.Errorf("metadata value must not be null")
	case c == '{':
		return fmt.Errorf("metadata value must not be an object")
	case c == '[':
		return fmt.Errorf("metadata value must not be an array")
	default:
		return fmt.Errorf("unsupported metadata value %s", data)
	}
	return nil
}

// Metadata is a free-form mapping attached to a receipt
type Metadata map[string]MetadataValue

// UnmarshalJSON decodes key by key so a bad entry is reported with its key
func (m *Metadata) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("metadata must be an object: %w", err)
	}

	out := make(Metadata, len(raw))
	for key, value := range raw {
		var v MetadataValue
		if err := v.UnmarshalJSON(value); err != nil {
			return fmt.Errorf("metadata %q: %w", key, err)
		}
		out[key] = v
	}
	*m = out
	return nil
}

// Clone returns an independent copy
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
