package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(f float64) *float64 { return &f }

func TestSummarize(t *testing.T) {
	c := Candidate{
		ID:   89631139,
		Name: "Blue-Eyes White Dragon",
		Printings: []Printing{
			{SetCode: "LOB-EN001", SetName: "Legend of Blue Eyes White Dragon", Rarity: "Ultra Rare", RarityCode: "(UR)", Price: price(90)},
			{SetCode: "SDK-001", SetName: "Starter Deck: Kaiba", Rarity: "Ultra Rare", RarityCode: "(UR)", Price: price(20)},
			{SetCode: "LOB-EN001", SetName: "Legend of Blue Eyes White Dragon (Reprint)", Rarity: "Secret Rare", RarityCode: "(ScR)", Price: price(90)},
			{SetCode: "LOB-EN001", SetName: "Legend of Blue Eyes White Dragon", Rarity: "Ultra Rare", RarityCode: "(UR)", Price: price(95)},
			{SetCode: "DUPO-EN10", SetName: "Duel Power", Rarity: "Ultra Rare"},
			{SetCode: "DUPO-EN9", SetName: "Duel Power", Rarity: "Ultra Rare"},
			{SetCode: "", SetName: "nameless"},
		},
	}

	s := Summarize(c)
	assert.Equal(t, int64(89631139), s.CardID)
	require.Len(t, s.Sets, 4)
	assert.Equal(t, []Set{
		{Code: "DUPO-EN9", Name: "Duel Power"},
		{Code: "DUPO-EN10", Name: "Duel Power"},
		{Code: "LOB-EN001", Name: "Legend of Blue Eyes White Dragon"},
		{Code: "SDK-001", Name: "Starter Deck: Kaiba"},
	}, s.Sets)

	assert.Equal(t, []string{"Secret Rare", "Ultra Rare"}, s.Rarities["LOB-EN001"])
	assert.Equal(t, []RarityInfo{{"Ultra Rare", "(UR)"}, {"Secret Rare", "(ScR)"}}, s.RarityCodes["LOB-EN001"])
	assert.Equal(t, []float64{90, 95}, s.Prices["LOB-EN001"])
	assert.Empty(t, s.Prices["DUPO-EN9"])
	assert.False(t, s.Empty())
	assert.True(t, Summarize(Candidate{Name: "Token"}).Empty())
}

func TestNaturalCompare(t *testing.T) {
	assert.Negative(t, naturalCompare("LOB-9", "LOB-10"))
	assert.Positive(t, naturalCompare("LOB-10", "LOB-9"))
	assert.Zero(t, naturalCompare("SDY-006", "SDY-006"))
	assert.Negative(t, naturalCompare("SDY-6", "SDY-006A"))
	assert.Negative(t, naturalCompare("ABC", "ABD"))
	assert.Negative(t, naturalCompare("AB", "ABC"))
}
