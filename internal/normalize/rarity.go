package normalize

import "strings"

// rarityByCode maps PocketDB rarity codes to the symbols the front-end shows.
var rarityByCode = map[string]string{
	"C":   "◊",
	"U":   "◊◊",
	"R":   "◊◊◊",
	"RR":  "◊◊◊◊",
	"AR":  "☆",
	"SR":  "☆☆",
	"SAR": "☆☆",
	"IM":  "☆☆☆",
	"UR":  "👑",
	"CR":  "👑",
	"S":   "✵",
	"SSR": "✵✵",
}

// rarityByText maps TCGdex textual rarities, lowercased and singular.
var rarityByText = map[string]string{
	"one diamond":   "◊",
	"two diamond":   "◊◊",
	"three diamond": "◊◊◊",
	"four diamond":  "◊◊◊◊",
	"one star":      "☆",
	"two star":      "☆☆",
	"three star":    "☆☆☆",
	"one shiny":     "✵",
	"two shiny":     "✵✵",
	"crown":         "👑",
}

// PromoRarity is the symbol used when a textual rarity is unknown or empty.
const PromoRarity = "P"

// Rarity maps a rarity code to its symbol. Unknown codes pass through.
func Rarity(code string) string {
	if sym, ok := rarityByCode[code]; ok {
		return sym
	}
	return code
}

// RarityFromText maps "Two Diamonds", "one-star" and similar to a symbol.
// Anything unrecognized becomes PromoRarity.
func RarityFromText(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return PromoRarity
	}
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "-", " ")), " ")
	s = strings.TrimSuffix(s, "s")
	if sym, ok := rarityByText[s]; ok {
		return sym
	}
	return PromoRarity
}
