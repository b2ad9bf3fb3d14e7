package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindByExt(t *testing.T) {
	k, err := KindByExt(".cc")
	require.NoError(t, err)
	assert.Equal(t, "C++source", k.String())

	k, err = KindByExt(".hpp")
	require.NoError(t, err)
	assert.Equal(t, "header", k.String())

	_, err = KindByExt(".bogus")
	require.Error(t, err)
}

func TestParseExeHasEmptyDefaultExt(t *testing.T) {
	s, err := Parse("examples/hello")
	require.NoError(t, err)
	assert.Equal(t, Spec{Branch: "examples", Atom: "hello", Ext: ""}, s)
	assert.Equal(t, Exe, s.Kind())
}

func TestParseSharedLib(t *testing.T) {
	s, err := Parse("examples/hello.so")
	require.NoError(t, err)
	assert.Equal(t, "examples", s.Branch)
	assert.Equal(t, "hello", s.Atom)
	assert.Equal(t, SharedLib, s.Kind())
}

func TestParseNestedBranch(t *testing.T) {
	s, err := Parse("examples/hello_world/hello.cc")
	require.NoError(t, err)
	assert.Equal(t, "examples/hello_world", s.Branch)
	assert.Equal(t, "hello", s.Atom)
	assert.Equal(t, CppSource, s.Kind())
}

func TestRelpathRoundTrips(t *testing.T) {
	s, err := Parse("examples/basic.c")
	require.NoError(t, err)
	assert.Equal(t, "examples/basic.c", s.Relpath())
}

func TestWithKindSwapsExtension(t *testing.T) {
	s, err := New("examples", "hello", ".cc")
	require.NoError(t, err)
	obj := s.WithKind(Object)
	assert.Equal(t, "examples", obj.Branch)
	assert.Equal(t, "hello", obj.Atom)
	assert.Equal(t, ".o", obj.Ext)
}

func TestSpecEqualityIsValueBased(t *testing.T) {
	a, err := New("examples", "hello", ".cc")
	require.NoError(t, err)
	b, err := New("examples", "hello", ".cc")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, a == b)
}

func TestNewRejectsUnknownExtension(t *testing.T) {
	_, err := New("examples", "hello", ".xyz")
	require.Error(t, err)
}
