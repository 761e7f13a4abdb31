package preflight

import (
	"errors"
	"os/exec"
	"testing"
)

func fakeLookPath(present ...string) LookPath {
	return func(file string) (string, error) {
		for _, p := range present {
			if p == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
	}
}

func TestCheck_AllPresent(t *testing.T) {
	t.Parallel()

	if err := Check(fakeLookPath("ping", "solana", "doublezero"), "ping", "solana", "doublezero"); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestCheck_ReportsEveryMissingTool(t *testing.T) {
	t.Parallel()

	err := Check(fakeLookPath("ping"), "doublezero", "ping", "solana", "solana")
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("err=%v", err)
	}
	missing := Missing(err)
	if len(missing) != 2 {
		t.Fatalf("missing=%v", missing)
	}
	if missing[0].Error() != "required tool not found: doublezero" || missing[1].Error() != "required tool not found: solana" {
		t.Fatalf("missing=%v", missing)
	}
}
