package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vaultcore/internal/panicexecutor"
	"vaultcore/internal/vaultroot"
)

func init() {
	panicCmd.SilenceErrors = true
	panicCmd.SilenceUsage = true
	rootCmd.AddCommand(panicCmd)
	panicCmd.Flags().StringVar(&panicVaultDir, "vault", "", "Vault directory (required)")
	panicCmd.Flags().BoolVar(&panicDryRun, "dry-run", false, "Report intended actions without destroying anything")
	panicCmd.Flags().BoolVarP(&panicYes, "yes", "y", false, "Skip the confirmation prompt")
	_ = panicCmd.MarkFlagRequired("vault")
}

var (
	panicVaultDir string
	panicDryRun   bool
	panicYes      bool
)

var panicCmd = &cobra.Command{
	Use:   "panic",
	Short: "Irreversibly destroy the vault's key material",
	Long: `panic permanently destroys the password store and salt so that
neither the MASTER nor DECOY data keys can ever be recovered again, then
makes a best-effort attempt to overwrite and remove the remaining data and
metadata files.

Phase 1 (the password store and salt) is the only phase that provides the
actual security guarantee and cannot be cancelled once started. Phases 2-4
are defense in depth and are checked for cancellation between each one.

This command cannot be undone. Use --dry-run first if you want to see what
it would do without touching anything.`,
	RunE: runPanic,
}

func runPanic(cmd *cobra.Command, args []string) error {
	if !panicDryRun && !panicYes {
		fmt.Fprintf(os.Stderr, "This will permanently and irreversibly destroy vault %s. Continue? [y/N]: ", panicVaultDir)
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(response)) != "y" {
			return fmt.Errorf("aborted")
		}
	}

	root := vaultroot.New(panicVaultDir)
	entries, err := panicexecutor.Execute(root, panicexecutor.Options{
		DryRun: panicDryRun,
		Cancel: isCancelled,
		Progress: func(phase, total int, info string) {
			fmt.Fprintf(os.Stderr, "phase %d/%d: %s\n", phase, total, info)
		},
	})
	for _, e := range entries {
		status := "ok"
		if e.Err != nil {
			status = e.Err.Error()
		}
		fmt.Fprintf(os.Stderr, "[phase %d] %s %s: %s\n", e.Phase, e.Action, e.Target, status)
	}
	if err != nil {
		return fmt.Errorf("panic: %w", err)
	}
	if panicDryRun {
		fmt.Println("dry run complete, nothing was touched")
	} else {
		fmt.Println("vault destroyed")
	}
	return nil
}
