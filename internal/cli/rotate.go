package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vaultcore/internal/passwordstore"
	"vaultcore/internal/vaultroot"
)

func init() {
	rotateCmd.SilenceErrors = true
	rotateCmd.SilenceUsage = true
	rootCmd.AddCommand(rotateCmd)
	rotateCmd.Flags().StringVar(&rotateVaultDir, "vault", "", "Vault directory (required)")
	rotateCmd.Flags().StringVar(&rotateRole, "role", "", "Role to rotate: master, decoy, or panic (required)")
	_ = rotateCmd.MarkFlagRequired("vault")
	_ = rotateCmd.MarkFlagRequired("role")
}

var (
	rotateVaultDir string
	rotateRole     string
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Change one role's password without touching the other two",
	Long: `rotate replaces the password for a single role (MASTER, DECOY, or
PANIC) while leaving the wrapped data key itself in place for MASTER and
DECOY — only the wrapping changes, under a fresh salt. The old password
stops classifying to this role the moment rotate succeeds.`,
	RunE: runRotate,
}

func roleFromFlag(s string) (passwordstore.Role, error) {
	switch s {
	case "master":
		return passwordstore.RoleMaster, nil
	case "decoy":
		return passwordstore.RoleDecoy, nil
	case "panic":
		return passwordstore.RolePanic, nil
	default:
		return passwordstore.RoleInvalid, fmt.Errorf("unknown role %q (want master, decoy, or panic)", s)
	}
}

func runRotate(cmd *cobra.Command, args []string) error {
	role, err := roleFromFlag(rotateRole)
	if err != nil {
		return err
	}
	root := vaultroot.New(rotateVaultDir)

	oldPw, err := readPasswordSecure(fmt.Sprintf("Current %s password: ", rotateRole))
	if err != nil {
		return err
	}
	defer oldPw.Close()

	newPw, err := ReadPasswordInteractive(fmt.Sprintf("New %s password", rotateRole), true)
	if err != nil {
		return err
	}
	defer newPw.Close()

	if err := passwordstore.Rotate(root, role, oldPw, newPw); err != nil {
		return fmt.Errorf("rotate %s: %w", rotateRole, err)
	}
	fmt.Printf("%s password rotated\n", rotateRole)
	return nil
}
