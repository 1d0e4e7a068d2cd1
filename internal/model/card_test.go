package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardMarshal_LeadingKeysFirst(t *testing.T) {
	c := Card{
		Series: "A",
		Set:    "P-A",
		Number: 3,
		ID:     "P-A-003",
		Fields: Fields{
			{Key: "foo", Value: json.RawMessage(`1`)},
			{Key: "bar", Value: json.RawMessage(`2`)},
		},
		Keyed: true,
	}

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"series":"A","set":"P-A","number":3,"id":"P-A-003","foo":1,"bar":2}`, string(out))
}

func TestCardMarshal_UnkeyedPassesThrough(t *testing.T) {
	c := Card{Fields: Fields{{Key: "name", Value: json.RawMessage(`"x"`)}}}

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, string(out))
}

func TestCardUnmarshal_LiftsLeadingKeys(t *testing.T) {
	var c Card
	require.NoError(t, json.Unmarshal([]byte(`{"series":"A","set":"A1","number":5,"id":"A1-005","rarity":"◊"}`), &c))

	assert.True(t, c.Keyed)
	assert.Equal(t, "A1-005", c.ID)
	assert.Equal(t, 5, c.Number)
	assert.Equal(t, []string{"rarity"}, keys(c.Fields))
}

func TestCardUnmarshal_PartialIsUnkeyed(t *testing.T) {
	var c Card
	require.NoError(t, json.Unmarshal([]byte(`{"set":"A1","name":"x"}`), &c))

	assert.False(t, c.Keyed)
	assert.Equal(t, []string{"set", "name"}, keys(c.Fields))
}

func TestCardName(t *testing.T) {
	var c Card
	require.NoError(t, json.Unmarshal([]byte(`{"label":{"slug":"bulbasaur","eng":"Bulbasaur"}}`), &c))
	assert.Equal(t, "Bulbasaur", c.Name())

	assert.Equal(t, "", (&Card{}).Name())
}

func TestDetailAccessors(t *testing.T) {
	d, err := NewDetail(json.RawMessage(`{"category":"Trainer","trainerType":"Supporter","types":["Colorless"]}`))
	require.NoError(t, err)

	assert.Equal(t, "Trainer", d.Category())
	assert.Equal(t, "Supporter", d.TrainerType())

	_, err = NewDetail(json.RawMessage(`"nope"`))
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestSetIsPromo(t *testing.T) {
	assert.True(t, Set{Code: "P-A"}.IsPromo())
	assert.False(t, Set{Code: "A1"}.IsPromo())
	assert.Equal(t, []string{"A1", "P-A"}, SetCodes([]Set{{Code: "A1"}, {Code: "P-A"}}))
}
