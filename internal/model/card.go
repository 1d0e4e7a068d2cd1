package model

import (
	"bytes"
)

// Leading keys that every keyed card record starts with, in output order.
const (
	KeySeries = "series"
	KeySet    = "set"
	KeyNumber = "number"
	KeyID     = "id"
)

// LeadingKeys lists the keys a keyed card emits before its other fields.
var LeadingKeys = []string{KeySeries, KeySet, KeyNumber, KeyID}

// IsLeadingKey reports whether key is one of LeadingKeys.
func IsLeadingKey(key string) bool {
	switch key {
	case KeySeries, KeySet, KeyNumber, KeyID:
		return true
	}
	return false
}

// Card is one card record. Keyed cards encode Series, Set, Number and ID
// first, followed by Fields in order. Cards that could not be keyed encode
// only Fields, which then still hold the source's own set/number.
type Card struct {
	Series string
	Set    string
	Number int
	ID     string
	Fields Fields
	Keyed  bool
}

// MarshalJSON writes the leading keys followed by the remaining fields.
func (c Card) MarshalJSON() ([]byte, error) {
	if !c.Keyed {
		return c.Fields.MarshalJSON()
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	series, err := marshalNoEscape(c.Series)
	if err != nil {
		return nil, err
	}
	set, err := marshalNoEscape(c.Set)
	if err != nil {
		return nil, err
	}
	id, err := marshalNoEscape(c.ID)
	if err != nil {
		return nil, err
	}

	buf.WriteString(`"series":`)
	buf.Write(series)
	buf.WriteString(`,"set":`)
	buf.Write(set)
	buf.WriteString(`,"number":`)
	buf.Write(quoteInt(c.Number))
	buf.WriteString(`,"id":`)
	buf.Write(id)

	if err := c.Fields.writeMembers(&buf, true); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a previously written card back. Leading keys are
// lifted out of the object when all four are present.
func (c *Card) UnmarshalJSON(data []byte) error {
	var f Fields
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}

	series, okSeries := f.String(KeySeries)
	set, okSet := f.String(KeySet)
	number, okNumber := f.Int(KeyNumber)
	id, okID := f.String(KeyID)
	if !okSeries || !okSet || !okNumber || !okID {
		*c = Card{Fields: f}
		return nil
	}

	rest := make(Fields, 0, len(f))
	for _, field := range f {
		if !IsLeadingKey(field.Key) {
			rest = append(rest, field)
		}
	}
	*c = Card{
		Series: series,
		Set:    set,
		Number: number,
		ID:     id,
		Fields: rest,
		Keyed:  true,
	}
	return nil
}

// Name returns the English card label when the source carried one.
func (c *Card) Name() string {
	raw, ok := c.Fields.Get("label")
	if !ok {
		return ""
	}
	var label Fields
	if err := label.UnmarshalJSON(raw); err != nil {
		return ""
	}
	name, _ := label.String("eng")
	return name
}
