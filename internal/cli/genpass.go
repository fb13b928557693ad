package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vaultcore/internal/util"
)

func init() {
	rootCmd.AddCommand(genpassCmd)
	genpassCmd.Flags().IntVarP(&genpassLength, "length", "l", 24, "Password length")
	genpassCmd.Flags().BoolVar(&genpassNoSymbols, "no-symbols", false, "Exclude symbol characters")
}

var (
	genpassLength    int
	genpassNoSymbols bool
)

var genpassCmd = &cobra.Command{
	Use:   "genpass",
	Short: "Generate a cryptographically random password",
	Long: `genpass prints a random password suitable for a MASTER, DECOY, or
PANIC role, drawn from crypto/rand. It is not stored anywhere; copy it
somewhere safe before running init.`,
	RunE: runGenpass,
}

func runGenpass(cmd *cobra.Command, args []string) error {
	pw, err := util.GenPassword(util.PassgenOptions{
		Length:  genpassLength,
		Upper:   true,
		Lower:   true,
		Numbers: true,
		Symbols: !genpassNoSymbols,
	})
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	if pw == "" {
		return fmt.Errorf("invalid length %d", genpassLength)
	}
	fmt.Println(pw)
	return nil
}
