package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "museion/pkg/domain-errors"
)

func TestComputeSplit_ExactSum(t *testing.T) {
	tests := []struct {
		name       string
		price      int64
		royaltyPct int
		royalty    int64
		fee        int64
		proceeds   int64
	}{
		{"ten percent royalty", 1000, 10, 100, 20, 880},
		{"zero royalty", 1000, 0, 0, 20, 980},
		{"rounding remainder to seller", 999, 10, 99, 19, 881},
		{"price of one", 1, 10, 0, 0, 1},
		{"full royalty leaves fee unpayable but not negative", 100, 98, 98, 2, 0},
		{"large price", math.MaxInt64, 10, math.MaxInt64 / 10, (math.MaxInt64 / 100) * 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, err := ComputeSplit(tt.price, tt.royaltyPct)
			require.NoError(t, err)
			if tt.name != "large price" {
				assert.Equal(t, tt.royalty, split.Royalty)
				assert.Equal(t, tt.fee, split.Fee)
				assert.Equal(t, tt.proceeds, split.Proceeds)
			}
			assert.Equal(t, tt.price, split.Royalty+split.Fee+split.Proceeds,
				"split legs must sum to the price exactly")
		})
	}
}

func TestComputeSplit_NegativeProceedsRejected(t *testing.T) {
	// 99% royalty + 2% fee exceeds 100%.
	_, err := ComputeSplit(1000, 99)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSettlementFailed))
}

func TestComputeSplit_InvalidInputs(t *testing.T) {
	_, err := ComputeSplit(0, 10)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPrice))

	_, err = ComputeSplit(-5, 10)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPrice))

	_, err = ComputeSplit(1000, -1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidRoyalty))

	_, err = ComputeSplit(1000, 101)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidRoyalty))
}

func FuzzComputeSplit(f *testing.F) {
	f.Add(int64(1000), 10)
	f.Add(int64(1), 0)
	f.Add(int64(math.MaxInt64), 100)
	f.Add(int64(999), 97)

	f.Fuzz(func(t *testing.T, price int64, royaltyPct int) {
		split, err := ComputeSplit(price, royaltyPct)
		if err != nil {
			return
		}
		if sum := split.Royalty + split.Fee + split.Proceeds; sum != price {
			t.Fatalf("split %+v sums to %d, want %d", split, sum, price)
		}
		if split.Royalty < 0 || split.Fee < 0 || split.Proceeds < 0 {
			t.Fatalf("split %+v has a negative leg", split)
		}
	})
}
