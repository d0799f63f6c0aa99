// Package codemaker buffers generated source units with indentation-aware
// line emission. One unit is open at a time.
package codemaker

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const indentation = "  "

var (
	ErrFileOpen    = errors.New("another file is already open")
	ErrFileExists  = errors.New("file has already been generated")
	ErrUnbalanced  = errors.New("unbalanced block")
	ErrUnitClosed  = errors.New("unit is no longer open")
	errEmptyUnitID = errors.New("file name must not be empty")
)

// Maker collects committed source units in memory.
type Maker struct {
	files   map[string]string
	current *Unit
}

// Unit is the handle of the currently open source unit.
type Unit struct {
	maker  *Maker
	name   string
	buf    strings.Builder
	depth  int
	closed bool
}

func New() *Maker {
	return &Maker{files: make(map[string]string)}
}

// OpenFile starts a new unit. The returned handle must be closed to commit
// the unit or discarded to drop it; Discard after Close is a no-op.
func (m *Maker) OpenFile(name string) (*Unit, error) {
	if name == "" {
		return nil, errEmptyUnitID
	}
	if m.current != nil {
		return nil, fmt.Errorf("%w: %s (opening %s)", ErrFileOpen, m.current.name, name)
	}
	if _, ok := m.files[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, name)
	}
	m.current = &Unit{maker: m, name: name}
	return m.current, nil
}

// Line writes one line at the current indentation. Without arguments an empty line is written.
func (m *Maker) Line(text ...string) {
	u := m.current
	if u == nil {
		return
	}
	line := strings.Join(text, "")
	if line != "" {
		u.buf.WriteString(strings.Repeat(indentation, u.depth))
		u.buf.WriteString(line)
	}
	u.buf.WriteString("\n")
}

// Open writes text and indents the following lines.
func (m *Maker) Open(text string) {
	m.Line(text)
	if m.current != nil {
		m.current.depth++
	}
}

// Close unindents and writes text.
func (m *Maker) Close(text string) {
	if m.current != nil && m.current.depth > 0 {
		m.current.depth--
	}
	m.Line(text)
}

func (m *Maker) OpenBlock(header string) {
	m.Open(header + " {")
}

func (m *Maker) CloseBlock() {
	m.Close("}")
}

// Current returns the name of the open unit.
func (m *Maker) Current() (string, bool) {
	if m.current == nil {
		return "", false
	}
	return m.current.name, true
}

// Files returns the names of all committed units, sorted.
func (m *Maker) Files() []string {
	return slices.Sorted(maps.Keys(m.files))
}

func (m *Maker) Content(name string) (string, bool) {
	c, ok := m.files[name]
	return c, ok
}

// Save writes all committed units below dir.
func (m *Maker) Save(dir string) error {
	if m.current != nil {
		return fmt.Errorf("%w: %s", ErrFileOpen, m.current.name)
	}
	for _, name := range m.Files() {
		path := filepath.Join(dir, name)

		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return fmt.Errorf("error creating directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(m.files[name]), 0o644); err != nil {
			return fmt.Errorf("error writing output file: %w", err)
		}
		slog.With("file", path).Info("Successfully generated source file")
	}
	return nil
}

func (u *Unit) Name() string {
	return u.name
}

// Close commits the unit.
func (u *Unit) Close() error {
	if u.closed {
		return fmt.Errorf("%w: %s", ErrUnitClosed, u.name)
	}
	u.closed = true
	u.maker.current = nil
	if u.depth != 0 {
		return fmt.Errorf("%w: %s ends at depth %d", ErrUnbalanced, u.name, u.depth)
	}
	u.maker.files[u.name] = u.buf.String()
	return nil
}

// Discard drops the unit unless it has been closed already.
func (u *Unit) Discard() {
	if u.closed {
		return
	}
	u.closed = true
	u.maker.current = nil
}
