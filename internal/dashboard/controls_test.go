package dashboard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntControlCoercesAndFiresOnChange(t *testing.T) {
	c := NewIntControl("Year", 2024)
	fired := 0
	c.OnChange(func() { fired++ })

	assert.Equal(t, 2024, c.Value())

	c.SetValue(2024)
	assert.Equal(t, 0, fired, "same value must not fire")

	c.SetValue(" 2023 ")
	assert.Equal(t, 2023, c.Value())
	assert.Equal(t, 1, fired)

	c.SetValue("twenty")
	assert.Nil(t, c.Value())
	assert.Equal(t, 2, fired)

	c.SetValue((*int)(nil))
	assert.Equal(t, 2, fired, "still empty")

	n := 2022
	c.SetValue(&n)
	n = 1999
	v, ok := c.Int()
	assert.True(t, ok)
	assert.Equal(t, 2022, v, "pointer input is copied")
}

func TestLinkControlTrimsAndClears(t *testing.T) {
	c := NewLinkControl("Company", "Company")
	fired := 0
	c.OnChange(func() { fired++ })

	assert.Nil(t, c.Value())

	c.SetValue("  Globex ")
	assert.Equal(t, "Globex", c.Value())
	assert.Equal(t, 1, fired)

	c.SetValue("Globex")
	assert.Equal(t, 1, fired)

	c.SetValue("")
	assert.Nil(t, c.Value())
	assert.Equal(t, 2, fired)

	c.SetValue(42)
	assert.Equal(t, 2, fired, "unsupported input reads as empty")
}

func TestIntControlAcceptsWholeFloats(t *testing.T) {
	c := NewIntControl("Year", 2023)

	c.SetValue(2024.0)
	assert.Equal(t, 2024, c.Value())

	c.SetValue(2024.5)
	assert.Nil(t, c.Value())

	c.SetValue(math.NaN())
	assert.Nil(t, c.Value())

	c.SetValue(float64(2025))
	v, ok := c.Int()
	assert.True(t, ok)
	assert.Equal(t, 2025, v)
}
