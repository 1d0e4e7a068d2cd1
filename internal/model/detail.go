package model

import "encoding/json"

// Detail is a per-card detail object fetched from TCGdex. It is kept as an
// ordered object so cached details are written back exactly as received.
type Detail struct {
	Fields
}

// NewDetail decodes raw into a Detail.
func NewDetail(raw json.RawMessage) (Detail, error) {
	var d Detail
	if err := d.Fields.UnmarshalJSON(raw); err != nil {
		return Detail{}, err
	}
	return d, nil
}

// MarshalJSON encodes the detail fields.
func (d Detail) MarshalJSON() ([]byte, error) {
	return d.Fields.MarshalJSON()
}

// UnmarshalJSON decodes the detail fields.
func (d *Detail) UnmarshalJSON(data []byte) error {
	return d.Fields.UnmarshalJSON(data)
}

// Category returns the card category ("Pokemon", "Trainer", ...).
func (d Detail) Category() string {
	s, _ := d.String("category")
	return s
}

// TrainerType returns the trainer sub-type ("Item", "Supporter", "Tool", ...).
func (d Detail) TrainerType() string {
	s, _ := d.String("trainerType")
	return s
}
