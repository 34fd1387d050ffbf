package keystream

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/cryptolab/lfsrcrack/lfsr"
)

func TestCombine(t *testing.T) {
	assert := require.New(t)

	// modulus is 255, not byte wrap-around
	assert.Equal(byte(45), Combine(200, 100))
	assert.Equal(byte(0), Combine(254, 1))
	assert.Equal(byte(0), Combine(0, 0))
	assert.Equal(byte(0), Combine(255, 255))
	assert.Equal(byte(254), Combine(254, 0))

	// exhaustive: the result never reaches 255
	for b1 := 0; b1 < 256; b1++ {
		for b2 := 0; b2 < 256; b2++ {
			if c := Combine(byte(b1), byte(b2)); c > 254 {
				t.Fatalf("Combine(%d, %d) = %d", b1, b2, c)
			}
		}
	}
}

func labSpecs(t *testing.T) (*lfsr.RegisterSpec, *lfsr.RegisterSpec) {
	t.Helper()
	spec1, err := lfsr.NewRegisterSpec(12, []int{2, 7})
	require.NoError(t, err)
	spec2, err := lfsr.NewRegisterSpec(19, []int{5, 11})
	require.NoError(t, err)
	return spec1, spec2
}

// reference vector computed with the lab's reference implementation
func TestGeneratorVector(t *testing.T) {
	assert := require.New(t)

	spec1, spec2 := labSpecs(t)
	g := New(spec1, spec2, 2025, 314159)
	want := []byte{25, 51, 31, 91, 236, 28, 100, 149, 204, 204, 185, 159, 234, 173, 238, 99}
	if diff := cmp.Diff(want, g.Generate(16)); diff != "" {
		t.Fatalf("keystream mismatch (-want +got):\n%s", diff)
	}

	// restart reproduces the same sequence
	assert.Equal(want, New(spec1, spec2, 2025, 314159).Generate(16))
}

func TestGeneratorComposability(t *testing.T) {
	assert := require.New(t)

	spec1, spec2 := labSpecs(t)
	full := New(spec1, spec2, 2025, 314159).Generate(24)

	g := New(spec1, spec2, 2025, 314159)
	got := g.Append(nil, 7)
	got = g.Append(got, 17)
	assert.Equal(full, got)
}

func TestGeneratorProperties(t *testing.T) {
	spec1, spec2 := labSpecs(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	properties.Property("keystream bytes stay in [0, 254]", prop.ForAll(
		func(seed1, seed2 uint64) bool {
			g := New(spec1, spec2, seed1, seed2)
			for _, b := range g.Generate(32) {
				if b > 254 {
					return false
				}
			}
			return true
		},
		gen.UInt64(), gen.UInt64(),
	))
	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestXORBytes(t *testing.T) {
	assert := require.New(t)

	a := []byte{0x89, 0x50, 0x4e, 0x47}
	ks := []byte{25, 51, 31, 91}

	ct := make([]byte, 4)
	assert.Equal(4, XORBytes(ct, a, ks))
	pt := make([]byte, 4)
	assert.Equal(4, XORBytes(pt, ct, ks))
	assert.Equal(a, pt)

	// shortest input wins
	out := make([]byte, 2)
	assert.Equal(2, XORBytes(out, a[:2], ks))
}
