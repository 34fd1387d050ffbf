package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cryptolab/lfsrcrack/keystream"
	"github.com/cryptolab/lfsrcrack/lfsr"
)

func TestCrackCommand(t *testing.T) {
	assert := require.New(t)
	dir := t.TempDir()

	spec1, err := lfsr.NewRegisterSpec(4, []int{1, 2})
	assert.NoError(err)
	spec2, err := lfsr.NewRegisterSpec(5, []int{1, 3})
	assert.NoError(err)

	known := []byte{0xca, 0xfe, 0xba, 0xbe}
	plaintext := append([]byte{}, known...)
	for i := 0; i < 64; i++ {
		plaintext = append(plaintext, byte(i*13+1))
	}
	ks := keystream.New(spec1, spec2, 11, 23).Generate(len(plaintext))
	cipher := make([]byte, len(plaintext))
	keystream.XORBytes(cipher, plaintext, ks)

	cipherPath := filepath.Join(dir, "payload.enc")
	assert.NoError(os.WriteFile(cipherPath, cipher, 0o644))
	outPath := filepath.Join(dir, "payload.dec")

	rootCmd.SetArgs([]string{
		"crack", cipherPath,
		"--out", outPath,
		"--known-prefix", "cafebabe",
		"--w1", "4", "--taps1", "1,2",
		"--w2", "5", "--taps2", "1,3",
		"--table-cache", filepath.Join(dir, "table.cache"),
	})
	assert.NoError(rootCmd.Execute())

	decrypted, err := os.ReadFile(outPath)
	assert.NoError(err)
	assert.Equal(plaintext, decrypted)

	// second run goes through the cached table
	assert.NoError(rootCmd.Execute())
	decrypted, err = os.ReadFile(outPath)
	assert.NoError(err)
	assert.Equal(plaintext, decrypted)
}
