package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pollos", "pollo"},
		{"Pollos ", "pollo"},
		{"limones", "limón"},
		{"tomates", "tomate"},
		{"luces", "luz"},
		{"nueces", "nuez"},
		{"cebollas", "cebolla"},
		{"huevos", "huevo"},
		{"ajíes", "ají"},
		{"lápiz", "lápiz"},
		{"gas", "ga"},
		{"compás", "compá"},
		{"bíceps", "bíceps"},
		{"ananás", "ananá"},
		{"  ARROZ  ", "arroz"},
		{"arroces", "arroz"},
		{"es", "es"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_IrregularTableWins(t *testing.T) {
	// regla general daría "limone"; la tabla gana
	assert.Equal(t, "limón", Normalize("LIMONES"))
	assert.Equal(t, "pan", Normalize("panes"))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"pollos", "tomates", "limones", "luces", "cebollas", "pimientos", "bíceps",
		"gas", "mes", "aes", "arroces", "zanahorias", "chiles", "Guisantes", "champiñones",
		"pan", "x", "ab", "abc ces", "leche", "fresas", "lentejas", "maíces",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeAll_SkipsEmpty(t *testing.T) {
	assert.Equal(t, []string{"pollo", "tomate"}, NormalizeAll([]string{"pollos", " ", "tomates", ""}))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"pollo", "cebolla", "ajo"}, SplitList(" pollo, cebolla ,,ajo "))
	assert.Empty(t, SplitList(""))
}
