// Package cli wires the vault's core packages (passwordstore, panicexecutor,
// backupcodec) into a Cobra command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set by main.go at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "vaultcore",
	Short: "Local, offline file vault with triple-password authentication",
	Long: `vaultcore manages an encrypted, offline file vault secured by three
passwords bound to one store:
  - MASTER unlocks the real vault.
  - DECOY unlocks a separate, equally plausible vault under duress.
  - PANIC destroys the key material for both, irreversibly.

Every unlock attempt is classified in constant wall-clock time so that an
observer watching response latency cannot tell which password, if any, was
presented.`,
	Version: Version,
}

// cancelled is set by the Ctrl-C/SIGTERM handler and polled by long-running
// subcommands (panic, backup restore) as their CancelFunc.
var cancelled atomic.Bool

func isCancelled() bool { return cancelled.Load() }

// Execute runs the CLI, returning the process exit code.
func Execute(version string) int {
	Version = version
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		cancelled.Store(true)
	}()

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
