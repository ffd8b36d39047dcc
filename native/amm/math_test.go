package amm

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestIntegerSqrt(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1"},
		{"3", "1"},
		{"4", "2"},
		{"999999", "999"},
		{"1000000", "1000"},
		{"50000000000000000000000000000000000000", "7071067811865475244"},
	}
	for _, tc := range cases {
		in, _ := new(big.Int).SetString(tc.in, 10)
		want, _ := new(big.Int).SetString(tc.want, 10)
		if got := integerSqrt(in); got.Cmp(want) != 0 {
			t.Fatalf("sqrt(%s): expected %s, got %s", tc.in, want, got)
		}
	}
}

func TestUQ112RoundTrip(t *testing.T) {
	// encode(8)/4 must equal 2 in UQ112x112.
	encoded := encodeUQ112(big.NewInt(8))
	quotient := divUQ112(encoded, big.NewInt(4))
	want := new(uint256.Int).Lsh(uint256.NewInt(2), 112)
	if quotient.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, quotient)
	}

	// Fractional result: encode(1)/2 is 0.5 in UQ112x112.
	half := divUQ112(encodeUQ112(big.NewInt(1)), big.NewInt(2))
	wantHalf := new(uint256.Int).Lsh(uint256.NewInt(1), 111)
	if half.Cmp(wantHalf) != 0 {
		t.Fatalf("expected %s, got %s", wantHalf, half)
	}
}

func TestEncodeUQ112MaxReserve(t *testing.T) {
	encoded := encodeUQ112(maxReserve)
	back := new(uint256.Int).Rsh(encoded, 112).ToBig()
	if back.Cmp(maxReserve) != 0 {
		t.Fatalf("expected %s, got %s", maxReserve, back)
	}
}
