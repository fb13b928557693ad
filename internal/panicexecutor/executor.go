package panicexecutor

import (
	"fmt"
	"os"
	"path/filepath"

	"vaultcore/internal/log"
	"vaultcore/internal/vaulterr"
	"vaultcore/internal/vaultlock"
	"vaultcore/internal/vaultroot"
)

// Options configures one Execute call.
type Options struct {
	// DryRun replaces every destructive action with a LogEntry describing
	// the intended target; no byte is modified and no file is unlinked.
	DryRun   bool
	Cancel   CancelFunc
	Progress ProgressFunc
}

// Execute runs all four erasure phases against root in order, returning the
// accumulated log regardless of where execution stopped. A failure in phase
// 1 aborts immediately and returns vaulterr.PanicPhase1Failed — until that
// phase succeeds, no cryptographic-erasure guarantee has been delivered, and
// the caller should retry. Failures in phases 2-4 are recorded in the
// returned log but do not stop subsequent phases from running; Execute's
// error return is nil as long as phase 1 succeeded.
func Execute(root vaultroot.Root, opts Options) ([]LogEntry, error) {
	unlock := vaultlock.Lock(root)
	defer unlock()

	var entries []LogEntry
	report(opts.Progress, 1, 4, "destroying key material")

	phase1, err := runPhase1(root, opts.DryRun)
	entries = append(entries, phase1...)
	if err != nil {
		return entries, vaulterr.NewPhaseError(1, root.PasswordStoreFile(), fmt.Errorf("%w: %w", vaulterr.PanicPhase1Failed, err))
	}

	if cancelled(opts.Cancel) {
		entries = append(entries, LogEntry{Phase: 2, Target: root.MetadataDir(), Action: ActionDryRun, Err: vaulterr.Cancelled})
		return entries, nil
	}
	report(opts.Progress, 2, 4, "destroying metadata")
	entries = append(entries, destroyTree(2, root.MetadataDir(), opts.DryRun)...)

	if cancelled(opts.Cancel) {
		entries = append(entries, LogEntry{Phase: 3, Target: root.FilesDir(), Action: ActionDryRun, Err: vaulterr.Cancelled})
		return entries, nil
	}
	report(opts.Progress, 3, 4, "destroying data files")
	entries = append(entries, destroyTree(3, root.FilesDir(), opts.DryRun)...)

	if cancelled(opts.Cancel) {
		entries = append(entries, LogEntry{Phase: 4, Target: root.Dir(), Action: ActionDryRun, Err: vaulterr.Cancelled})
		return entries, nil
	}
	report(opts.Progress, 4, 4, "removing directory structure")
	entries = append(entries, removeDirs(root, opts.DryRun)...)

	return entries, nil
}

func report(p ProgressFunc, phase, total int, info string) {
	if p != nil {
		p(phase, total, info)
	}
}

func cancelled(c CancelFunc) bool {
	return c != nil && c()
}

// runPhase1 destroys the PasswordStoreFile and its auxiliary salt file, the
// only step that delivers the cryptographic-erasure guarantee: once both are
// gone, the MASTER and DECOY wrapped keys are unrecoverable. This duplicates
// passwordstore's own destroyFile rather than calling passwordstore.Destroy,
// since Execute already holds this root's advisory lock and that call would
// re-acquire it. Cancellation is never honored here: phase 1 either
// completes or surfaces PanicPhase1Failed, per the concurrency model's
// explicit carve-out.
func runPhase1(root vaultroot.Root, dryRun bool) ([]LogEntry, error) {
	targets := []string{root.PasswordStoreFile(), root.SaltFile()}
	var entries []LogEntry

	for _, target := range targets {
		if dryRun {
			entries = append(entries, LogEntry{Phase: 1, Target: target, Action: ActionDryRun})
			continue
		}
		if _, err := os.Stat(target); os.IsNotExist(err) {
			continue
		}
		if err := overwriteAndUnlink(target); err != nil {
			entries = append(entries, LogEntry{Phase: 1, Target: target, Action: ActionUnlink, Err: err})
			return entries, err
		}
		entries = append(entries, LogEntry{Phase: 1, Target: target, Action: ActionUnlink})
	}
	return entries, nil
}

// destroyTree walks dir, best-effort overwriting and unlinking every regular
// file. Errors are recorded per-file but never abort the walk — phases 2-4
// are defense-in-depth and a single failing file must not block the rest.
func destroyTree(phase int, dir string, dryRun bool) []LogEntry {
	var entries []LogEntry
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return entries
	}

	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			entries = append(entries, LogEntry{Phase: phase, Target: path, Action: ActionUnlink, Err: err})
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if dryRun {
			entries = append(entries, LogEntry{Phase: phase, Target: path, Action: ActionDryRun})
			return nil
		}
		if oerr := overwriteAndUnlink(path); oerr != nil {
			entries = append(entries, LogEntry{Phase: phase, Target: path, Action: ActionUnlink, Err: oerr})
			log.Warn("destroyTree: best-effort destruction failed", log.Phase(phase), log.String("target", path), log.Err(oerr))
			return nil
		}
		entries = append(entries, LogEntry{Phase: phase, Target: path, Action: ActionUnlink})
		return nil
	})
	return entries
}

// removeDirs removes the vault's well-known subdirectories and, finally, the
// root itself together with anything still inside it.
func removeDirs(root vaultroot.Root, dryRun bool) []LogEntry {
	dirs := []string{root.FilesDir(), root.MetadataDir(), root.LogsDir(), root.Dir()}
	var entries []LogEntry
	for _, dir := range dirs {
		if dryRun {
			entries = append(entries, LogEntry{Phase: 4, Target: dir, Action: ActionDryRun})
			continue
		}
		err := os.RemoveAll(dir)
		entries = append(entries, LogEntry{Phase: 4, Target: dir, Action: ActionRemoveDir, Err: err})
	}
	return entries
}

// overwriteAndUnlink best-effort overwrites path's bytes with zeros before
// unlinking it. This provides no guarantee on wear-leveled flash or
// copy-on-write filesystems — it exists only as defense-in-depth beneath
// phase 1's cryptographic-erasure guarantee.
func overwriteAndUnlink(path string) error {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		if f, ferr := os.OpenFile(path, os.O_WRONLY, 0600); ferr == nil {
			zeros := make([]byte, info.Size())
			_, _ = f.WriteAt(zeros, 0)
			_ = f.Sync()
			_ = f.Close()
		}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
