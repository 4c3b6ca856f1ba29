package cardvault

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "$1.50", USD(1.5).String())
	assert.Equal(t, "+$2.00", USD(2).SignedString())
	assert.Equal(t, "-", USD(0).SignedString())
	assert.Equal(t, "3.25", M(3.25, "").String())
	assert.Equal(t, "$12.34", Cents(1234, "USD").String())
}

func TestParseMoney(t *testing.T) {
	testCases := []struct {
		in   string
		want Money
	}{
		{in: "12.5", want: USD(12.5)},
		{in: "12.5 EUR", want: EUR(12.5)},
		{in: "eur 3", want: EUR(3)},
		{in: "$4", want: USD(4)},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseMoney(tc.in, "USD")
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "ParseMoney(%q) = %v, want %v", tc.in, got, tc.want)
		})
	}
	_, err := ParseMoney("a lot", "USD")
	assert.Error(t, err)
}

func TestMoney_JSON(t *testing.T) {
	b, err := json.Marshal(EUR(2.5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":2.5,"currency":"EUR"}`, string(b))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`7.25`), &m))
	assert.True(t, m.Equal(M(7.25, "")))
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"1.10","currency":"usd"}`), &m))
	assert.True(t, m.Equal(USD(1.1)))
}

func TestMoney_Arithmetic(t *testing.T) {
	assert.True(t, USD(1.5).Mul(4).Equal(USD(6)))
	assert.True(t, USD(10).Div(4).Equal(USD(2.5)))
	assert.True(t, M(1, "").Add(EUR(1)).Equal(EUR(2)), "empty currency takes the other one")
	assert.Panics(t, func() { USD(1).Add(EUR(1)) })
}
