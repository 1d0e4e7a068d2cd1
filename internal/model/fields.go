// Package model defines the set, card and card-detail records that flow
// through the sync stages.
package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// ErrNotObject is returned when a JSON value that must be an object is not.
var ErrNotObject = eris.New("model: json value is not an object")

// Field is a single key/value pair of a JSON object.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Fields is a JSON object that keeps its keys in source order.
type Fields []Field

// IsObject reports whether raw holds a JSON object.
func IsObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Index returns the position of key, or -1.
func (f Fields) Index(key string) int {
	for i := range f {
		if f[i].Key == key {
			return i
		}
	}
	return -1
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	return f.Index(key) >= 0
}

// Get returns the raw value stored under key.
func (f Fields) Get(key string) (json.RawMessage, bool) {
	if i := f.Index(key); i >= 0 {
		return f[i].Value, true
	}
	return nil, false
}

// String decodes key as a JSON string. Non-string values report false.
func (f Fields) String(key string) (string, bool) {
	raw, ok := f.Get(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Object decodes key as a nested object.
func (f Fields) Object(key string) (Fields, bool) {
	raw, ok := f.Get(key)
	if !ok {
		return nil, false
	}
	var nested Fields
	if err := nested.UnmarshalJSON(raw); err != nil {
		return nil, false
	}
	return nested, true
}

// Int decodes key as a JSON integer. Fractional numbers with a zero
// fraction (3.0) are accepted.
func (f Fields) Int(key string) (int, bool) {
	raw, ok := f.Get(key)
	if !ok {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return int(i), true
	}
	fl, err := n.Float64()
	if err != nil || fl != float64(int64(fl)) {
		return 0, false
	}
	return int(fl), true
}

// Set stores value under key, in place when the key exists and appended
// otherwise.
func (f *Fields) Set(key string, value json.RawMessage) {
	if i := f.Index(key); i >= 0 {
		(*f)[i].Value = value
		return
	}
	*f = append(*f, Field{Key: key, Value: value})
}

// SetString stores a JSON string under key.
func (f *Fields) SetString(key, value string) {
	raw, _ := marshalNoEscape(value)
	f.Set(key, raw)
}

// SetBool stores a JSON boolean under key.
func (f *Fields) SetBool(key string, value bool) {
	f.Set(key, json.RawMessage(strconv.FormatBool(value)))
}

// SetStrings stores a JSON array of strings under key.
func (f *Fields) SetStrings(key string, values []string) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		raw, _ := marshalNoEscape(v)
		buf.Write(raw)
	}
	buf.WriteByte(']')
	f.Set(key, buf.Bytes())
}

// Delete removes key, keeping the order of the remaining fields.
func (f *Fields) Delete(key string) {
	i := f.Index(key)
	if i < 0 {
		return
	}
	*f = append((*f)[:i], (*f)[i+1:]...)
}

// Clone returns a copy that shares no slice storage with f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	copy(out, f)
	return out
}

// MarshalJSON encodes the fields as an object in their stored order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := f.writeMembers(&buf, false); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeMembers writes "key":value pairs without the surrounding braces.
// When leadingComma is set a comma precedes the first member.
func (f Fields) writeMembers(buf *bytes.Buffer, leadingComma bool) error {
	for i, field := range f {
		if i > 0 || leadingComma {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(field.Key)
		if err != nil {
			return eris.Wrapf(err, "model: marshal key %s", field.Key)
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(field.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(field.Value)
	}
	return nil
}

// UnmarshalJSON decodes an object keeping key order. A repeated key keeps
// its first position and takes the last value.
func (f *Fields) UnmarshalJSON(data []byte) error {
	if !IsObject(data) {
		return ErrNotObject
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "model: read object start")
	}

	out := make(Fields, 0, 16)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "model: read object key")
		}
		key, ok := tok.(string)
		if !ok {
			return eris.Errorf("model: unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return eris.Wrapf(err, "model: decode value of %s", key)
		}
		out.Set(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "model: read object end")
	}
	*f = out
	return nil
}

// marshalNoEscape marshals v without HTML escaping so names like
// "Pokémon & Co" survive as written.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// quoteInt renders n as a JSON number.
func quoteInt(n int) []byte {
	return []byte(strconv.Itoa(n))
}
