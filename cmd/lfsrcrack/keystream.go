package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cryptolab/lfsrcrack/keystream"
	"github.com/cryptolab/lfsrcrack/lfsr"
)

var keystreamCmd = &cobra.Command{
	Use:   "keystream",
	Short: "prints the combined keystream for a known seed pair",
	Run:   cmdKeystream,
}

var (
	fSeed1   uint64
	fSeed2   uint64
	fNbBytes int
)

func init() {
	rootCmd.AddCommand(keystreamCmd)
	keystreamCmd.PersistentFlags().Uint64Var(&fSeed1, "seed1", 0, "seed of register 1")
	keystreamCmd.PersistentFlags().Uint64Var(&fSeed2, "seed2", 0, "seed of register 2")
	keystreamCmd.PersistentFlags().IntVarP(&fNbBytes, "nbytes", "n", 16, "number of keystream bytes to print")
	keystreamCmd.PersistentFlags().UintVar(&fWidth1, "w1", 12, "width of register 1 in bits")
	keystreamCmd.PersistentFlags().UintVar(&fWidth2, "w2", 19, "width of register 2 in bits")
	keystreamCmd.PersistentFlags().IntSliceVar(&fTaps1, "taps1", []int{2, 7}, "taps of register 1, 1-based from the MSB")
	keystreamCmd.PersistentFlags().IntSliceVar(&fTaps2, "taps2", []int{5, 11}, "taps of register 2, 1-based from the MSB")
}

func cmdKeystream(cmd *cobra.Command, args []string) {
	if fNbBytes < 1 {
		fmt.Println("invalid --nbytes")
		os.Exit(-1)
	}
	spec1, err := lfsr.NewRegisterSpec(fWidth1, fTaps1)
	if err != nil {
		fmt.Println("invalid register 1:", err)
		os.Exit(-1)
	}
	spec2, err := lfsr.NewRegisterSpec(fWidth2, fTaps2)
	if err != nil {
		fmt.Println("invalid register 2:", err)
		os.Exit(-1)
	}

	g := keystream.New(spec1, spec2, fSeed1, fSeed2)
	fmt.Println(hex.EncodeToString(g.Generate(fNbBytes)))
}
