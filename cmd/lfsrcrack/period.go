package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cryptolab/lfsrcrack/lfsr"
)

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "measures the cycle length of a register for a given seed",
	Run:   cmdPeriod,
}

var (
	fWidth  uint
	fTaps   []int
	fSeed   uint64
	fNbBits int
)

func init() {
	rootCmd.AddCommand(periodCmd)
	periodCmd.PersistentFlags().UintVar(&fWidth, "width", 19, "register width in bits")
	periodCmd.PersistentFlags().IntSliceVar(&fTaps, "taps", []int{5, 11}, "taps, 1-based from the MSB")
	periodCmd.PersistentFlags().Uint64Var(&fSeed, "seed", 1, "seed to clock from")
	periodCmd.PersistentFlags().IntVar(&fNbBits, "bits", 0, "also dump this many output bits, hex encoded")
}

func cmdPeriod(cmd *cobra.Command, args []string) {
	spec, err := lfsr.NewRegisterSpec(fWidth, fTaps)
	if err != nil {
		fmt.Println("invalid register:", err)
		os.Exit(-1)
	}

	period := spec.Period(fSeed)
	if period == 0 {
		fmt.Printf("seed %d is not on a cycle (it leads into one)\n", fSeed)
	} else {
		fmt.Printf("%s seed=%d period=%d (max %d)\n", spec, fSeed, period, spec.Mask())
	}

	if fNbBits > 0 {
		var buf bytes.Buffer
		if err := spec.WriteBits(&buf, fSeed, fNbBits); err != nil {
			fmt.Println("error:", err)
			os.Exit(-1)
		}
		fmt.Println(hex.EncodeToString(buf.Bytes()))
	}
}
