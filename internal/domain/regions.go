package domain

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed data/us_states.txt
var defaultRegionData []byte

// RegionTable is an immutable bidirectional code↔name lookup built once at startup.
// The name→code map is derived by inverting code→name, never stored independently.
type RegionTable struct {
	codeToName map[string]string
	nameToCode map[string]string
	order      []string // codes in file order
}

// DefaultRegionTable parses the embedded US state reference data.
func DefaultRegionTable() (*RegionTable, error) {
	return NewRegionTable(bytes.NewReader(defaultRegionData))
}

// LoadRegionTable parses a reference file from disk.
func LoadRegionTable(path string) (*RegionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open region file: %w", err)
	}
	defer f.Close()
	return NewRegionTable(f)
}

// NewRegionTable parses "code|...|name" lines. Blank lines and lines starting with '#'
// are ignored. Fields between the first and the last are ignored.
func NewRegionTable(r io.Reader) (*RegionTable, error) {
	t := &RegionTable{codeToName: make(map[string]string)}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Split(text, "|")
		if len(fields) < 2 {
			return nil, fmt.Errorf("region line %d: expected code|...|name, got %q", line, text)
		}
		code := strings.TrimSpace(fields[0])
		name := strings.TrimSpace(fields[len(fields)-1])

		if !isRegionCode(code) {
			return nil, fmt.Errorf("region line %d: invalid code %q", line, code)
		}
		if name == "" {
			return nil, fmt.Errorf("region line %d: empty name for code %s", line, code)
		}
		if _, dup := t.codeToName[code]; dup {
			return nil, fmt.Errorf("region line %d: duplicate code %s", line, code)
		}
		t.codeToName[code] = name
		t.order = append(t.order, code)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read region data: %w", err)
	}
	if len(t.codeToName) == 0 {
		return nil, fmt.Errorf("region data is empty")
	}

	t.nameToCode = make(map[string]string, len(t.codeToName))
	for code, name := range t.codeToName {
		if other, dup := t.nameToCode[name]; dup {
			return nil, fmt.Errorf("region name %q maps to both %s and %s", name, other, code)
		}
		t.nameToCode[name] = code
	}
	return t, nil
}

func isRegionCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// NameForCode returns the region name for a two-letter code.
func (t *RegionTable) NameForCode(code string) (string, bool) {
	name, ok := t.codeToName[code]
	return name, ok
}

// CodeForName returns the two-letter code for a full region name.
func (t *RegionTable) CodeForName(name string) (string, bool) {
	code, ok := t.nameToCode[name]
	return code, ok
}

// Lookup resolves a designator that is either a two-letter code or a full name.
func (t *RegionTable) Lookup(designator string) (Region, bool) {
	if len(designator) == 2 {
		name, ok := t.codeToName[designator]
		return Region{Name: name, Code: designator}, ok
	}
	code, ok := t.nameToCode[designator]
	return Region{Name: designator, Code: code}, ok
}

// Regions lists every region in reference file order.
func (t *RegionTable) Regions() []Region {
	out := make([]Region, 0, len(t.order))
	for _, code := range t.order {
		out = append(out, Region{Name: t.codeToName[code], Code: code})
	}
	return out
}

// Len reports the number of regions.
func (t *RegionTable) Len() int {
	return len(t.order)
}
