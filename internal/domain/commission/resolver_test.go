package commission

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestResolve(t *testing.T) {
	r := DefaultRounding()

	tests := []struct {
		name    string
		calc    CalcType
		rate    string
		sale    string
		untaxed string
		want    string
		wantErr error
	}{
		{"fixed ignores bases", CalcFixed, "500", "100000", "95000", "500", nil},
		{"pct of sale value", CalcPctSaleValue, "95", "100000", "80000", "95000", nil},
		{"pct of untaxed", CalcPctUntaxed, "2", "120000", "100000", "2000", nil},
		{"fractional rate", CalcPctUntaxed, "1.5", "0", "33333.33", "500", nil},
		{"half even rounds down on tie", CalcPctSaleValue, "1", "0.5", "0", "0", nil},
		{"half even rounds 1.125 to 1.12", CalcFixed, "1.125", "0", "0", "1.12", nil},
		{"half even rounds 1.135 to 1.14", CalcFixed, "1.135", "0", "0", "1.14", nil},
		{"zero rate", CalcPctUntaxed, "0", "100000", "100000", "0", nil},
		{"negative fixed", CalcFixed, "-1", "0", "0", "", ErrNegativeAmount},
		{"rate above 100", CalcPctSaleValue, "100.01", "1000", "1000", "", ErrRateOutOfRange},
		{"negative base", CalcPctUntaxed, "5", "1000", "-1000", "", ErrNegativeAmount},
		{"unknown calc type", CalcType("tiered"), "5", "1000", "1000", "", ErrUnknownCalcType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.calc, d(tt.rate), d(tt.sale), d(tt.untaxed), r)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assertDecimal(t, tt.want, got)
		})
	}
}

func TestResolve_HalfUp(t *testing.T) {
	got, err := Resolve(CalcFixed, d("1.125"), decimal.Zero, decimal.Zero, Rounding{Places: 2, Mode: RoundHalfUp})
	require.NoError(t, err)
	assertDecimal(t, "1.13", got)
}

func TestResolve_FixedIsIndependentOfBases(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	r := DefaultRounding()

	for i := 0; i < 200; i++ {
		amount := decimal.NewFromInt(rng.Int63n(1_000_000)).Div(hundred)
		sale := decimal.NewFromInt(rng.Int63n(10_000_000))
		untaxed := decimal.NewFromInt(rng.Int63n(10_000_000))

		got, err := Resolve(CalcFixed, amount, sale, untaxed, r)
		require.NoError(t, err)
		assert.True(t, amount.Equal(got), "fixed %s resolved to %s", amount, got)
	}
}

func TestResolve_PctSaleValueIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	r := DefaultRounding()

	for i := 0; i < 200; i++ {
		rate := decimal.NewFromInt(rng.Int63n(10_000)).Div(hundred)
		sale := decimal.NewFromInt(rng.Int63n(5_000_000))

		got, err := Resolve(CalcPctSaleValue, rate, sale, decimal.Zero, r)
		require.NoError(t, err)
		assert.True(t, r.Apply(rate.Mul(sale).Div(hundred)).Equal(got))

		higherRate := rate.Add(d("0.5"))
		if higherRate.GreaterThan(hundred) {
			higherRate = hundred
		}
		byRate, err := Resolve(CalcPctSaleValue, higherRate, sale, decimal.Zero, r)
		require.NoError(t, err)
		assert.True(t, byRate.GreaterThanOrEqual(got), "rate %s -> %s, rate %s -> %s", rate, got, higherRate, byRate)

		bySale, err := Resolve(CalcPctSaleValue, rate, sale.Add(decimal.NewFromInt(1000)), decimal.Zero, r)
		require.NoError(t, err)
		assert.True(t, bySale.GreaterThanOrEqual(got))
	}
}

func TestParseCalcType(t *testing.T) {
	tests := []struct {
		in      string
		want    CalcType
		wantErr bool
	}{
		{"fixed", CalcFixed, false},
		{"pct_sale_value", CalcPctSaleValue, false},
		{"percent_unit_price", CalcPctSaleValue, false},
		{" PCT_UNTAXED ", CalcPctUntaxed, false},
		{"percent_untaxed_total", CalcPctUntaxed, false},
		{"bonus", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCalcType(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownCalcType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_IsValid(t *testing.T) {
	for _, r := range KnownRoles() {
		assert.True(t, r.IsValid(), r)
	}
	assert.True(t, Role("team_leader").IsValid())
	assert.False(t, Role("").IsValid())
	assert.False(t, Role("Broker").IsValid())
	assert.False(t, Role("1st_agent").IsValid())
}
