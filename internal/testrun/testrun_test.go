package testrun

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibuild/ib/internal/spec"
)

func mustSpec(t *testing.T, branch, atom, ext string) spec.Spec {
	t.Helper()
	s, err := spec.New(branch, atom, ext)
	require.NoError(t, err)
	return s
}

func TestIsTest(t *testing.T) {
	assert.True(t, IsTest(mustSpec(t, "examples", "hello-test", "")))
	assert.False(t, IsTest(mustSpec(t, "examples", "hello", "")))
}

func writeExecutable(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
}

func TestRunPartitionsPassAndFail(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts aren't executable on windows")
	}
	outRoot := t.TempDir()

	passSpec := mustSpec(t, "examples", "pass-test", "")
	failSpec := mustSpec(t, "examples", "fail-test", "")
	notATest := mustSpec(t, "examples", "hello", "")

	writeExecutable(t, filepath.Join(outRoot, passSpec.Relpath()), "#!/bin/sh\nexit 0\n")
	writeExecutable(t, filepath.Join(outRoot, failSpec.Relpath()), "#!/bin/sh\nexit 1\n")

	results := Run(outRoot, []spec.Spec{passSpec, failSpec, notATest})
	require.Len(t, results, 2)

	passed, failed := Summarize(results)
	assert.Equal(t, []spec.Spec{passSpec}, passed)
	assert.Equal(t, []spec.Spec{failSpec}, failed)
}

func TestDiscoverAllFindsTestSources(t *testing.T) {
	root := t.TempDir()
	writeExecutable(t, filepath.Join(root, "examples", "hello-test.cc"), "")
	writeExecutable(t, filepath.Join(root, "examples", "hello.cc"), "")
	writeExecutable(t, filepath.Join(root, "examples", "nested", "world-test.cc"), "")

	targets, err := DiscoverAll(root)
	require.NoError(t, err)
	assert.Len(t, targets, 2)
	for _, target := range targets {
		assert.NotContains(t, target, ".cc")
	}
}
