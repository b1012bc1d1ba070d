package pricing

import (
	"math/rand"
	"testing"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(price float64, qty int) domain.CartItem {
	return domain.CartItem{ProductID: "p", UnitPrice: price, Quantity: qty}
}

func TestPrice_Scenarios(t *testing.T) {
	calc := NewCalculator(DefaultRules())

	tests := []struct {
		name  string
		items []domain.CartItem
		want  domain.Prices
	}{
		{
			name:  "above threshold ships free",
			items: []domain.CartItem{line(60, 2), line(10, 1)},
			want:  domain.Prices{ItemsPrice: 130, ShippingPrice: 0, TaxPrice: 19.5, TotalPrice: 149.5},
		},
		{
			name:  "below threshold pays flat fee",
			items: []domain.CartItem{line(20, 1)},
			want:  domain.Prices{ItemsPrice: 20, ShippingPrice: 10, TaxPrice: 3, TotalPrice: 33},
		},
		{
			name:  "exactly at threshold pays flat fee",
			items: []domain.CartItem{line(50, 2)},
			want:  domain.Prices{ItemsPrice: 100, ShippingPrice: 10, TaxPrice: 15, TotalPrice: 125},
		},
		{
			name:  "tax rounds half up",
			items: []domain.CartItem{line(0.1, 1)},
			want:  domain.Prices{ItemsPrice: 0.1, ShippingPrice: 10, TaxPrice: 0.02, TotalPrice: 10.12},
		},
		{
			name:  "float noise does not leak",
			items: []domain.CartItem{line(0.1, 1), line(0.2, 1)},
			want:  domain.Prices{ItemsPrice: 0.3, ShippingPrice: 10, TaxPrice: 0.05, TotalPrice: 10.35},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calc.Price(tt.items))
		})
	}
}

func TestPrice_CustomRules(t *testing.T) {
	calc := NewCalculator(Rules{FreeShippingThreshold: 50, FlatShippingFee: 7.5, TaxRate: 0.21})

	got := calc.Price([]domain.CartItem{line(30, 1)})
	assert.Equal(t, 7.5, got.ShippingPrice)
	assert.Equal(t, 6.3, got.TaxPrice)

	got = calc.Price([]domain.CartItem{line(30, 2)})
	assert.Equal(t, 0.0, got.ShippingPrice)
}

func TestPrice_IsOrderIndependent(t *testing.T) {
	calc := NewCalculator(DefaultRules())
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(8)
		items := make([]domain.CartItem, n)
		for j := range items {
			cents := rng.Intn(20000)
			items[j] = line(float64(cents)/100, 1+rng.Intn(5))
		}
		want := calc.Price(items)

		shuffled := append([]domain.CartItem(nil), items...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, calc.Price(shuffled))
	}
}

func TestPrice_TotalIsExactSumOfParts(t *testing.T) {
	calc := NewCalculator(DefaultRules())
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		items := []domain.CartItem{
			line(float64(rng.Intn(9999))/100, 1+rng.Intn(3)),
			line(float64(rng.Intn(9999))/100, 1+rng.Intn(3)),
		}
		p := calc.Price(items)

		sum := decimal.NewFromFloat(p.ItemsPrice).
			Add(decimal.NewFromFloat(p.ShippingPrice)).
			Add(decimal.NewFromFloat(p.TaxPrice))
		require.True(t, sum.Equal(decimal.NewFromFloat(p.TotalPrice)), "total %v != parts %v", p.TotalPrice, sum)

		if p.ItemsPrice > 100 {
			require.Zero(t, p.ShippingPrice)
		} else {
			require.Equal(t, 10.0, p.ShippingPrice)
		}
	}
}

func TestRound2AndFormat(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, 2.68, Round2(2.675))
	assert.Equal(t, "149.50", FormatAmount(149.5))
	assert.Equal(t, "33.00", FormatAmount(33))
}
