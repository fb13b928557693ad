package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vaultcore/internal/passwordstore"
	"vaultcore/internal/vaultroot"
)

func init() {
	initCmd.SilenceErrors = true
	initCmd.SilenceUsage = true
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initVaultDir, "vault", "", "Vault directory (required)")
	_ = initCmd.MarkFlagRequired("vault")
}

var initVaultDir string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new vault with MASTER, DECOY, and PANIC passwords",
	Long: `init creates a fresh vault directory and prompts for three distinct
passwords. Each one is confirmed before the store is written.

The KDF parameters are benchmarked once against this machine so that every
later classification takes roughly the same amount of wall-clock time
regardless of which password (if any) matched.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root := vaultroot.New(initVaultDir)
	if passwordstore.IsConfigured(root) {
		return fmt.Errorf("vault already initialized at %s", initVaultDir)
	}
	if err := os.MkdirAll(root.Dir(), 0700); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}
	for _, dir := range []string{root.FilesDir(), root.MetadataDir(), root.LogsDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	master, err := ReadPasswordInteractive("MASTER password", true)
	if err != nil {
		return fmt.Errorf("master password: %w", err)
	}
	defer master.Close()

	decoy, err := ReadPasswordInteractive("DECOY password", true)
	if err != nil {
		return fmt.Errorf("decoy password: %w", err)
	}
	defer decoy.Close()

	panicPw, err := ReadPasswordInteractive("PANIC password", true)
	if err != nil {
		return fmt.Errorf("panic password: %w", err)
	}
	defer panicPw.Close()

	if master.Equal(decoy) || master.Equal(panicPw) || decoy.Equal(panicPw) {
		return fmt.Errorf("MASTER, DECOY, and PANIC passwords must all be distinct")
	}

	fmt.Fprintln(os.Stderr, "Benchmarking KDF parameters for this machine, this takes a few seconds...")
	if err := passwordstore.Create(root, master, decoy, panicPw); err != nil {
		return fmt.Errorf("create vault: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Vault initialized at %s\n", initVaultDir)
	return nil
}
