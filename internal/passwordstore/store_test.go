package passwordstore

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"vaultcore/internal/secret"
	"vaultcore/internal/vaulterr"
	"vaultcore/internal/vaultroot"
)

func newTestRoot(t *testing.T) vaultroot.Root {
	t.Helper()
	return vaultroot.New(t.TempDir())
}

func pw(s string) *secret.Password { return secret.NewPasswordFromString(s) }

func TestCreateAndClassifyRoles(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises the real KDF benchmark; slow")
	}
	root := newTestRoot(t)
	master, decoy, panicPw := pw("Mmaster-pw-1!"), pw("Ddecoy-pw-2!"), pw("Ppanic-pw-3!")
	defer master.Close()
	defer decoy.Close()
	defer panicPw.Close()

	if err := Create(root, master, decoy, panicPw); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !IsConfigured(root) {
		t.Fatal("IsConfigured must be true after Create")
	}

	cases := []struct {
		name string
		pw   *secret.Password
		want Role
	}{
		{"master", pw("Mmaster-pw-1!"), RoleMaster},
		{"decoy", pw("Ddecoy-pw-2!"), RoleDecoy},
		{"panic", pw("Ppanic-pw-3!"), RolePanic},
		{"wrong", pw("wrong"), RoleInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer tc.pw.Close()
			start := time.Now()
			got, err := Classify(root, tc.pw)
			elapsed := time.Since(start)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Role != tc.want {
				t.Fatalf("got role %v, want %v", got.Role, tc.want)
			}
			if elapsed < tBase {
				t.Fatalf("classify returned in %v, faster than the %v floor", elapsed, tBase)
			}
			if elapsed > tBase+tJitter+200*time.Millisecond {
				t.Fatalf("classify took %v, far past the %v+%v contract", elapsed, tBase, tJitter)
			}
		})
	}
}

func TestUnwrapDistinctness(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises the real KDF benchmark; slow")
	}
	root := newTestRoot(t)
	master, decoy, panicPw := pw("Mmaster-pw-1!"), pw("Ddecoy-pw-2!"), pw("Ppanic-pw-3!")
	defer master.Close()
	defer decoy.Close()
	defer panicPw.Close()
	if err := Create(root, master, decoy, panicPw); err != nil {
		t.Fatalf("Create: %v", err)
	}

	vmk, err := Unwrap(root, RoleMaster, pw("Mmaster-pw-1!"))
	if err != nil {
		t.Fatalf("unwrap master: %v", err)
	}
	defer secret.Zero(vmk)

	dvmk, err := Unwrap(root, RoleDecoy, pw("Ddecoy-pw-2!"))
	if err != nil {
		t.Fatalf("unwrap decoy: %v", err)
	}
	defer secret.Zero(dvmk)

	if bytes.Equal(vmk, dvmk) {
		t.Fatal("VMK and DVMK must be distinct")
	}

	if _, err := Unwrap(root, RoleMaster, pw("Ddecoy-pw-2!")); !errors.Is(err, vaulterr.CorruptStore) {
		t.Fatalf("unwrap master with decoy password: got %v, want CORRUPT_STORE", err)
	}
}

func TestRotateIsIdempotentAndInvalidatesOldPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises the real KDF benchmark; slow")
	}
	root := newTestRoot(t)
	master, decoy, panicPw := pw("Mmaster-pw-1!"), pw("Ddecoy-pw-2!"), pw("Ppanic-pw-3!")
	if err := Create(root, master, decoy, panicPw); err != nil {
		t.Fatalf("Create: %v", err)
	}

	before, err := Unwrap(root, RoleMaster, pw("Mmaster-pw-1!"))
	if err != nil {
		t.Fatalf("unwrap before rotate: %v", err)
	}
	defer secret.Zero(before)

	if err := Rotate(root, RoleMaster, pw("Mmaster-pw-1!"), pw("Mmaster-pw-1!")); err != nil {
		t.Fatalf("rotate to same password: %v", err)
	}

	got, err := Classify(root, pw("Mmaster-pw-1!"))
	if err != nil {
		t.Fatalf("classify after rotate: %v", err)
	}
	if got.Role != RoleMaster {
		t.Fatalf("rotate-to-same-password must still classify as MASTER, got %v", got.Role)
	}
	if !bytes.Equal(got.Key, before) {
		t.Fatal("rotate-to-same-password must preserve the wrapped DataKey")
	}
	secret.Zero(got.Key)

	if err := Rotate(root, RoleMaster, pw("Mmaster-pw-1!"), pw("Nnew-master-4!")); err != nil {
		t.Fatalf("rotate to new password: %v", err)
	}

	oldResult, err := Classify(root, pw("Mmaster-pw-1!"))
	if err != nil {
		t.Fatalf("classify old password: %v", err)
	}
	if oldResult.Role != RoleInvalid {
		t.Fatalf("old password must classify INVALID after rotation, got %v", oldResult.Role)
	}

	newResult, err := Classify(root, pw("Nnew-master-4!"))
	if err != nil {
		t.Fatalf("classify new password: %v", err)
	}
	if newResult.Role != RoleMaster {
		t.Fatalf("new password must classify MASTER, got %v", newResult.Role)
	}
}

func TestDestroyInvalidatesStore(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises the real KDF benchmark; slow")
	}
	root := newTestRoot(t)
	master, decoy, panicPw := pw("Mmaster-pw-1!"), pw("Ddecoy-pw-2!"), pw("Ppanic-pw-3!")
	if err := Create(root, master, decoy, panicPw); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := Destroy(root); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if IsConfigured(root) {
		t.Fatal("IsConfigured must be false after Destroy")
	}

	got, err := Classify(root, pw("Mmaster-pw-1!"))
	if err != nil {
		t.Fatalf("classify after destroy: %v", err)
	}
	if got.Role != RoleInvalid {
		t.Fatalf("classify after destroy must be INVALID, got %v", got.Role)
	}
}

// TestClassifyLatencyStatistics checks the fixed-latency property across a
// reduced sample count — a full >=100-run sample per class takes minutes
// given the ~900ms floor, so this runs a fixed 6 samples per class. Running
// it with -count repeats the whole test with the same 6-sample size; there is
// no larger-sample mode.
func TestClassifyLatencyStatistics(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical timing property; slow by construction")
	}
	root := newTestRoot(t)
	master, decoy, panicPw := pw("Mmaster-pw-1!"), pw("Ddecoy-pw-2!"), pw("Ppanic-pw-3!")
	if err := Create(root, master, decoy, panicPw); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const samples = 6
	means := map[Role]time.Duration{}
	inputs := []struct {
		role Role
		pw   string
	}{
		{RoleMaster, "Mmaster-pw-1!"},
		{RoleDecoy, "Ddecoy-pw-2!"},
		{RolePanic, "Ppanic-pw-3!"},
		{RoleInvalid, "wrong"},
	}

	for _, in := range inputs {
		var total time.Duration
		for i := 0; i < samples; i++ {
			start := time.Now()
			if _, err := Classify(root, pw(in.pw)); err != nil {
				t.Fatalf("classify: %v", err)
			}
			total += time.Since(start)
		}
		means[in.role] = total / samples
		if means[in.role] < tBase {
			t.Fatalf("mean latency for %v is %v, below the %v floor", in.role, means[in.role], tBase)
		}
	}

	var min, max time.Duration
	first := true
	for _, m := range means {
		if first || m < min {
			min = m
		}
		if first || m > max {
			max = m
		}
		first = false
	}
	if max-min > 100*time.Millisecond {
		t.Fatalf("per-class mean latencies differ by %v, exceeding the 100ms parity bound", max-min)
	}
}
