// lfsrcrack is a CLI around the lfsrcrack packages: it recovers the seeds
// of the two-register keystream generator from a ciphertext with a known
// plaintext prefix and decrypts it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cryptolab/lfsrcrack"
)

var rootCmd = &cobra.Command{
	Use:     "lfsrcrack",
	Short:   "recover two-register LFSR keystream seeds from known plaintext",
	Version: lfsrcrack.Version.String(),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(-1)
	}
}
