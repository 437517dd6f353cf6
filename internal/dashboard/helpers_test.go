package dashboard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

func mustCurrency(t *testing.T, code string) currency.Unit {
	t.Helper()
	unit, err := currency.ParseISO(code)
	require.NoError(t, err)
	return unit
}

func nan() float64 { return math.NaN() }
