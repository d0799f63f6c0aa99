package codemaker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaker_blocks(t *testing.T) {
	m := New()
	u, err := m.OpenFile("a.ts")
	require.NoError(t, err)

	m.Line("// header")
	m.Line()
	m.OpenBlock("export class A")
	m.Open("super(a, {")
	m.Line("b: 1,")
	m.Close("});")
	m.CloseBlock()
	require.NoError(t, u.Close())

	content, ok := m.Content("a.ts")
	require.True(t, ok)
	assert.Equal(t, "// header\n\nexport class A {\n  super(a, {\n    b: 1,\n  });\n}\n", content)
}

func TestMaker_singleOpenFile(t *testing.T) {
	m := New()
	u, err := m.OpenFile("a.ts")
	require.NoError(t, err)

	_, err = m.OpenFile("b.ts")
	assert.ErrorIs(t, err, ErrFileOpen)

	require.NoError(t, u.Close())
	_, err = m.OpenFile("a.ts")
	assert.ErrorIs(t, err, ErrFileExists)

	_, err = m.OpenFile("")
	assert.Error(t, err)
}

func TestUnit_discard(t *testing.T) {
	m := New()
	u, err := m.OpenFile("a.ts")
	require.NoError(t, err)
	m.Line("partial")
	u.Discard()

	assert.Empty(t, m.Files())
	_, open := m.Current()
	assert.False(t, open)

	// lines without an open unit are dropped
	m.Line("nowhere")

	u, err = m.OpenFile("a.ts")
	require.NoError(t, err)
	require.NoError(t, u.Close())
	u.Discard()
	assert.Equal(t, []string{"a.ts"}, m.Files())
	assert.ErrorIs(t, u.Close(), ErrUnitClosed)
}

func TestUnit_unbalanced(t *testing.T) {
	m := New()
	u, err := m.OpenFile("a.ts")
	require.NoError(t, err)
	m.OpenBlock("class A")
	assert.ErrorIs(t, u.Close(), ErrUnbalanced)
	assert.Empty(t, m.Files())
}

func TestMaker_Save(t *testing.T) {
	dir := t.TempDir()
	m := New()
	for _, name := range []string{"b.ts", "nested/a.ts"} {
		u, err := m.OpenFile(name)
		require.NoError(t, err)
		m.Line(name)
		require.NoError(t, u.Close())
	}
	assert.Equal(t, []string{"b.ts", "nested/a.ts"}, m.Files())

	require.NoError(t, m.Save(dir))

	data, err := os.ReadFile(filepath.Join(dir, "nested", "a.ts"))
	require.NoError(t, err)
	assert.Equal(t, "nested/a.ts\n", string(data))
}

func TestMaker_SaveWithOpenFile(t *testing.T) {
	m := New()
	_, err := m.OpenFile("a.ts")
	require.NoError(t, err)
	assert.ErrorIs(t, m.Save(t.TempDir()), ErrFileOpen)
}
