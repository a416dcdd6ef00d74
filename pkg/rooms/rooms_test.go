package rooms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAuditoriumVariants(t *testing.T) {
	cases := map[string]string{
		"Auditorium 2":           "Auditorium 2",
		"Audi 2":                 "Auditorium 2",
		"AUDI2":                  "Auditorium 2",
		"audi 2":                 "Auditorium 2",
		"Auditorium 2 @ Level 6": "Auditorium 2",
		"Audi 5 @Level 3":        "Auditorium 5",
	}
	for input, want := range cases {
		assert.Equal(t, want, Normalize(input), "input %q", input)
	}
}

func TestNormalizeBlockRooms(t *testing.T) {
	cases := map[string]string{
		"B-06-12": "B-06-12",
		"b-06-12": "B-06-12",
		"b 06 12": "B-06-12",
		"B0612":   "B-06-12",
	}
	for input, want := range cases {
		assert.Equal(t, want, Normalize(input), "input %q", input)
	}
}

func TestNormalizeTechLabs(t *testing.T) {
	cases := map[string]string{
		"Tech Lab 4-05": "Tech Lab 4-05",
		"TECH LAB 4-05": "Tech Lab 4-05",
		"techlab 4 05":  "Tech Lab 4-05",
	}
	for input, want := range cases {
		assert.Equal(t, want, Normalize(input), "input %q", input)
	}
}

func TestNormalizeFallbackTitleCases(t *testing.T) {
	assert.Equal(t, "Innovation Lab", Normalize("innovation lab"))
	assert.Equal(t, "Mph", Normalize("  MPH "))
	assert.Equal(t, "", Normalize("   "))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Audi 2", "AUDI2", "Auditorium 2 @ Level 6", "b 06 12", "B-06-12",
		"Tech Lab 4-05", "techlab 4 05", "innovation lab", "ONLMCO3@APU",
	}
	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
		key := SearchKey(input)
		assert.Equal(t, key, SearchKey(key), "input %q", input)
	}
}

func TestSearchKeyUnifiesVariants(t *testing.T) {
	want := SearchKey("Auditorium 2")
	assert.Equal(t, want, SearchKey("Audi 2"))
	assert.Equal(t, want, SearchKey("AUDI2"))
	assert.Equal(t, want, SearchKey("Auditorium 2 @ Level 6"))

	assert.Equal(t, SearchKey("B-06-12"), SearchKey("b 06 12"))
}

func TestLevel(t *testing.T) {
	level, ok := Level("Auditorium 2 @ Level 6")
	assert.True(t, ok)
	assert.Equal(t, 6, level)

	_, ok = Level("Auditorium 2")
	assert.False(t, ok)
}

func TestIsPhysical(t *testing.T) {
	assert.True(t, IsPhysical("B-06-12"))
	assert.True(t, IsPhysical("Auditorium 1"))
	assert.False(t, IsPhysical("ONLMCO3@APU"))
	assert.False(t, IsPhysical("onlmco3 room"))
}
