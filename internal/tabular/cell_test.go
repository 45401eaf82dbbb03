package tabular

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellString(t *testing.T) {
	t.Parallel()

	num := Number(3)
	frac := Number(1.25)
	text := Text("  cached  ")

	tests := []struct {
		name string
		cell Cell
		want string
	}{
		{"blank", Blank(), ""},
		{"text trimmed", Text("  농업인  "), "농업인"},
		{"integer number", Number(2000000), "2000000"},
		{"number truncated", Number(12.9), "12"},
		{"negative truncated toward zero", Number(-3.7), "-3"},
		{"date", Date(time.Date(2025, 2, 25, 13, 0, 0, 0, time.UTC)), "2025.02.25"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"error value", ErrorValue("#N/A"), ""},
		{"formula text result", Formula(`TRIM(B2)`, &text), "cached"},
		{"formula whole number", Formula("1+2", &num), "3.0"},
		{"formula fraction", Formula("5/4", &frac), "1.25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cell.String()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCellStringErrors(t *testing.T) {
	t.Parallel()

	flag := Bool(true)
	bad := []Cell{
		Formula("A1", nil),
		Formula("ISBLANK(A1)", &flag),
		Invalid(errors.New("bad serial")),
		Number(math.NaN()),
		{Kind: Kind(99)},
	}
	for _, c := range bad {
		_, err := c.String()
		assert.Error(t, err, "kind %s", c.Kind)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "formula", KindFormula.String())
	assert.Equal(t, "invalid", KindInvalid.String())
}
