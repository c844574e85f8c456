package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	c := Default()
	if c.SetMax != DefaultSetMax || c.MaxClonesPerPC != DefaultMaxClonesPerPC {
		t.Fatalf("Default() = %+v, unexpected values", c)
	}
	if c.StackDepthLimit != 1024 {
		t.Fatalf("StackDepthLimit = %d, want 1024", c.StackDepthLimit)
	}
}

func TestOverride(t *testing.T) {
	c := Default()
	if err := c.Override("set_max=3"); err != nil {
		t.Fatal(err)
	}
	if c.SetMax != 3 {
		t.Fatalf("SetMax = %d, want 3", c.SetMax)
	}
	if err := c.Override("remove_unreachable=true"); err != nil {
		t.Fatal(err)
	}
	if !c.RemoveUnreachable {
		t.Fatal("RemoveUnreachable should be true")
	}
	if err := c.Override("fold_constant_branches=true"); err != nil {
		t.Fatal(err)
	}
	if !c.FoldConstantBranches {
		t.Fatal("FoldConstantBranches should be true")
	}
	if err := c.Override("merge_unreachable=true"); err != nil {
		t.Fatal(err)
	}
	if !c.MergeUnreachable {
		t.Fatal("MergeUnreachable should be true")
	}
}

func TestOverrideUnknownKey(t *testing.T) {
	c := Default()
	err := c.Override("bogus_key=1")
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("err = %v, want ErrUnknownKey", err)
	}
}

func TestOverrideMalformed(t *testing.T) {
	c := Default()
	if err := c.Override("not-a-kv-pair"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("err = %v, want ErrInvalidValue", err)
	}
	if err := c.Override("set_max=notanumber"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("err = %v, want ErrInvalidValue", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evmtac.conf")
	contents := "# comment\nset_max=5\n\nmax_clones_per_pc=2\ndie_on_empty_pop=true\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.SetMax != 5 || c.MaxClonesPerPC != 2 || !c.DieOnEmptyPop {
		t.Fatalf("LoadFile() = %+v, unexpected values", c)
	}
	// Unspecified keys keep their default.
	if c.WidenThreshold != DefaultWidenThreshold {
		t.Fatalf("WidenThreshold = %d, want default %d", c.WidenThreshold, DefaultWidenThreshold)
	}
}
