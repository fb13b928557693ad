package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vaultcore/internal/backupcodec"
	"vaultcore/internal/vaultroot"
)

func init() {
	backupCmd.SilenceErrors = true
	backupCmd.SilenceUsage = true
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupVerifyCmd, backupRestoreCmd)

	backupCreateCmd.Flags().StringVar(&backupVaultDir, "vault", "", "Vault directory (required)")
	backupCreateCmd.Flags().StringVarP(&backupFile, "output", "o", "", "Backup file to write (required)")
	_ = backupCreateCmd.MarkFlagRequired("vault")
	_ = backupCreateCmd.MarkFlagRequired("output")

	backupVerifyCmd.Flags().StringVarP(&backupFile, "input", "i", "", "Backup file to check (required)")
	_ = backupVerifyCmd.MarkFlagRequired("input")

	backupRestoreCmd.Flags().StringVar(&backupVaultDir, "vault", "", "Vault directory to restore into (required)")
	backupRestoreCmd.Flags().StringVarP(&backupFile, "input", "i", "", "Backup file to restore from (required)")
	_ = backupRestoreCmd.MarkFlagRequired("vault")
	_ = backupRestoreCmd.MarkFlagRequired("input")
}

var (
	backupVaultDir string
	backupFile     string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, verify, or restore an encrypted vault backup",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Archive a vault's files/ and metadata/ trees into one encrypted file",
	Long: `create walks the vault's data tree, records a manifest (file count,
total size, and a digest over every file's contents), compresses the tree
with the manifest as its first entry, and seals the result under a key
derived from a password you supply here — independent of the vault's own
MASTER/DECOY/PANIC passwords, so a backup stays restorable even after a
panic has erased the live vault's key material.`,
	RunE: runBackupCreate,
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a backup file's integrity without touching any vault",
	RunE:  runBackupVerify,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace a vault's files/ and metadata/ trees from a backup",
	Long: `restore verifies the backup and reconstructs its contents in a
staging area, confirms the reconstructed tree's digest matches the
manifest, and only then replaces the live vault's data. Any failure before
that last step leaves the live vault completely unchanged.`,
	RunE: runBackupRestore,
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	root := vaultroot.New(backupVaultDir)
	pw, err := ReadPasswordInteractive("Backup password", true)
	if err != nil {
		return err
	}
	defer pw.Close()

	out, err := os.Create(backupFile)
	if err != nil {
		return fmt.Errorf("create %s: %w", backupFile, err)
	}
	defer out.Close()

	err = backupcodec.Create(root, out, pw, backupcodec.CreateOptions{
		Cancel: isCancelled,
		Progress: func(done, total int, info string) {
			fmt.Fprintf(os.Stderr, "\r%d/%d %s", done, total, info)
		},
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		_ = os.Remove(backupFile)
		return fmt.Errorf("backup create: %w", err)
	}
	fmt.Printf("backup written to %s\n", backupFile)
	return nil
}

func runBackupVerify(cmd *cobra.Command, args []string) error {
	pw, err := readPasswordSecure("Backup password: ")
	if err != nil {
		return err
	}
	defer pw.Close()

	in, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", backupFile, err)
	}
	defer in.Close()

	result, err := backupcodec.Verify(in, pw)
	if err != nil {
		return fmt.Errorf("backup verify: %w", err)
	}
	if !result.Valid {
		fmt.Println("INVALID")
		return fmt.Errorf("backup failed verification")
	}
	fmt.Printf("valid backup, created %s, %d files, %d bytes\n",
		result.CreationDate.Format("2006-01-02T15:04:05Z"), result.FileCount, result.TotalSize)
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	root := vaultroot.New(backupVaultDir)
	pw, err := readPasswordSecure("Backup password: ")
	if err != nil {
		return err
	}
	defer pw.Close()

	in, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", backupFile, err)
	}
	defer in.Close()

	result, err := backupcodec.Restore(root, in, pw, backupcodec.RestoreOptions{
		Cancel: isCancelled,
		Progress: func(done, total int, info string) {
			fmt.Fprintf(os.Stderr, "\r%d/%d %s", done, total, info)
		},
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("backup restore (final state %s): %w", result.FinalState, err)
	}
	fmt.Printf("vault restored from backup created %s\n", result.Manifest.CreationDate)
	return nil
}
