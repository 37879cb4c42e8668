package decimal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoneyRoundsToCents(t *testing.T) {
	assert.Equal(t, "12.35", NewMoney(12.345).String())
	assert.Equal(t, "0.10", NewMoney(0.1+0.2-0.2).String())
	assert.Equal(t, "-3.00", NewMoney(-2.999).String())
}

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyFromString("123.45")
	require.NoError(t, err)
	assert.Equal(t, "123.45", m.String())

	_, err = NewMoneyFromString("not-a-number")
	assert.Error(t, err)
}

func TestRounding(t *testing.T) {
	cases := []struct{ in, out string }{
		{"2.344", "2.34"},
		{"2.345", "2.35"},
		{"2.355", "2.36"},
		{"2.365", "2.37"},
	}
	for _, c := range cases {
		m, err := NewMoneyFromString(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.out, m.Round().String(), "round(%s)", c.in)
	}
}

func TestSum(t *testing.T) {
	assert.Equal(t, "0.02", Sum(0.005, 0.005).String())
	assert.Equal(t, "15.15", Sum(10.10, 5.05).String())
	assert.True(t, Sum().IsZero())
	assert.Equal(t, "20.00", NewMoney(10).Add(NewMoney(10)).String())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$1234.50", NewMoney(1234.5).Format())
	assert.Equal(t, "-$12.00", NewMoney(-12).Format())
	assert.Equal(t, "$0.00", NewMoney(0).Format())
	assert.InDelta(t, 1234.5, NewMoney(1234.5).Float64(), 1e-9)
}
