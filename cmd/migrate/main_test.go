package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	forced  int
	version uint
	verErr  error
}

func (f *fakeMigrator) Up() error { return f.upErr }

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Force(v int) error {
	f.forced = v
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, f.verErr }

func TestRunUpIgnoresNoChange(t *testing.T) {
	if err := run(&fakeMigrator{upErr: migrate.ErrNoChange}, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := run(&fakeMigrator{upErr: errors.New("dirty database")}, []string{"up"}); err == nil {
		t.Fatalf("expected up failure to surface")
	}
}

func TestRunDown(t *testing.T) {
	m := &fakeMigrator{}
	if err := run(m, []string{"down"}); err != nil {
		t.Fatalf("down: %v", err)
	}
	if err := run(m, []string{"down", "2"}); err != nil {
		t.Fatalf("down 2: %v", err)
	}
	if len(m.steps) != 2 || m.steps[0] != -1 || m.steps[1] != -2 {
		t.Fatalf("unexpected steps %v", m.steps)
	}
	if err := run(m, []string{"down", "zero"}); err == nil {
		t.Fatalf("expected invalid step count error")
	}
}

func TestRunForceAndVersion(t *testing.T) {
	m := &fakeMigrator{verErr: migrate.ErrNilVersion}
	if err := run(m, []string{"version"}); err != nil {
		t.Fatalf("version with nothing applied: %v", err)
	}
	if err := run(m, []string{"force", "1"}); err != nil {
		t.Fatalf("force: %v", err)
	}
	if m.forced != 1 {
		t.Fatalf("expected forced version 1, got %d", m.forced)
	}
	if err := run(m, []string{"force"}); err == nil {
		t.Fatalf("expected usage error")
	}
	if err := run(m, []string{"sideways"}); err == nil {
		t.Fatalf("expected usage error for unknown command")
	}
}
