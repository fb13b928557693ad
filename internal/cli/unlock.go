package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"vaultcore/internal/passwordstore"
	"vaultcore/internal/secret"
	"vaultcore/internal/vaultroot"
)

func init() {
	unlockCmd.SilenceErrors = true
	unlockCmd.SilenceUsage = true
	rootCmd.AddCommand(unlockCmd)
	unlockCmd.Flags().StringVar(&unlockVaultDir, "vault", "", "Vault directory (required)")
	_ = unlockCmd.MarkFlagRequired("vault")
}

var unlockVaultDir string

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Classify a password and print which role it matched",
	Long: `unlock prompts for a single password and reports whether it matched
MASTER, DECOY, or PANIC, or none of the three. The classification always
takes the same amount of wall-clock time regardless of which branch matched,
so shoulder-surfing the response time doesn't leak which password was
presented — or whether one was valid at all.

This command never prints the recovered data key; it is only a diagnostic
for the classification itself. Other commands (not shown here) that need the
unwrapped key call passwordstore.Classify internally.`,
	RunE: runUnlock,
}

func runUnlock(cmd *cobra.Command, args []string) error {
	root := vaultroot.New(unlockVaultDir)

	pw, err := readPasswordSecure("Password: ")
	if err != nil {
		return err
	}
	defer pw.Close()

	result, err := passwordstore.Classify(root, pw)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	defer secret.Zero(result.Key)

	switch result.Role {
	case passwordstore.RoleMaster:
		fmt.Println("MASTER")
	case passwordstore.RoleDecoy:
		fmt.Println("DECOY")
	case passwordstore.RolePanic:
		fmt.Println("PANIC")
	default:
		fmt.Println("INVALID")
	}
	if result.Role == passwordstore.RoleMaster || result.Role == passwordstore.RoleDecoy {
		sum := sha256.Sum256(result.Key)
		fmt.Printf("data key fingerprint: %s\n", hex.EncodeToString(sum[:8]))
	}
	return nil
}
