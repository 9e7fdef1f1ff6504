// Command validate performs offline integrity checks on the reference data the
// risk pipeline consumes: the region table, the client location file and,
// optionally, a saved USGS CSV export. No network calls are made.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -regions data/us_states.txt \
//	  -clients data/client_locations.csv \
//	  -quakes testdata/usgs_week.csv
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	notes  []string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	regionsPath := flag.String("regions", "", "region reference file (default: built-in US state table)")
	clientsPath := flag.String("clients", "data/client_locations.csv", "client locations CSV")
	quakesPath := flag.String("quakes", "", "optional saved USGS CSV export")
	flag.Parse()

	os.Exit(run(os.Stdout, *regionsPath, *clientsPath, *quakesPath))
}

func run(w io.Writer, regionsPath, clientsPath, quakesPath string) int {
	fmt.Fprintln(w, "=== Quake Risk Data Validation ===")
	fmt.Fprintln(w)

	var (
		regions *domain.RegionTable
		err     error
	)
	if regionsPath == "" {
		regions, err = domain.DefaultRegionTable()
	} else {
		regions, err = domain.LoadRegionTable(regionsPath)
	}
	if err != nil {
		fmt.Fprintf(w, "FATAL: load regions: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRegions(regions),
		validateClients(clientsPath, regions),
	}
	if quakesPath != "" {
		phases = append(phases, validateQuakes(quakesPath, regions))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
		for _, n := range p.notes {
			fmt.Fprintf(w, "      %s\n", n)
		}
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Region table ──
// Code and name maps must be mutual inverses, and no excluded territory may be listed.

func validateRegions(regions *domain.RegionTable) *phase {
	p := &phase{name: "Phase 1: Region Table"}
	p.notef("%d regions", regions.Len())

	if regions.Len() == 0 {
		p.errorf("region table is empty")
	}
	for _, r := range regions.Regions() {
		code, ok := regions.CodeForName(r.Name)
		if !ok || code != r.Code {
			p.errorf("%s: name %q maps back to %q", r.Code, r.Name, code)
		}
		name, ok := regions.NameForCode(r.Code)
		if !ok || name != r.Name {
			p.errorf("%s: code maps back to %q, want %q", r.Code, name, r.Name)
		}
		if _, err := regions.ResolvePlaceText("1 km N of Somewhere, " + r.Name); err != nil {
			p.errorf("%s: place text ending in %q does not resolve: %v", r.Code, r.Name, err)
		}
	}
	return p
}

// ── Phase 2: Client locations ──
// Every row must parse and name a known region; building names should be unique.

func validateClients(path string, regions *domain.RegionTable) *phase {
	p := &phase{name: "Phase 2: Client Locations"}

	targets, err := pipeline.ParseTargetsFile(path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	p.notef("%d client locations", len(targets))

	seen := make(map[string]bool, len(targets))
	for i, t := range targets {
		line := i + 2
		if t.Name == "" {
			p.errorf("line %d: empty building name", line)
		}
		if seen[t.Name] {
			p.errorf("line %d: duplicate building name %q", line, t.Name)
		}
		seen[t.Name] = true
		if t.FullAddress == "" {
			p.errorf("line %d (%s): empty full address", line, t.Name)
		}
		if _, ok := regions.Lookup(strings.TrimSpace(t.Region)); !ok {
			p.errorf("line %d (%s): unknown region %q", line, t.Name, t.Region)
		}
	}
	return p
}

// ── Phase 3: USGS export ──
// Every record must either parse or be attributable to a territory outside the table.

func validateQuakes(path string, regions *domain.RegionTable) *phase {
	p := &phase{name: "Phase 3: USGS Export"}

	f, err := os.Open(path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		p.errorf("read header: %v", err)
		return p
	}

	var parsed, excluded, unknown int
	for line := 2; ; line++ {
		var rec domain.RawQuakeRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			p.errorf("line %d: %v", line, err)
			continue
		}
		_, err := domain.ParseQuakeRecord(rec, regions)
		switch {
		case err == nil:
			parsed++
		case errors.Is(err, domain.ErrExcludedRegion):
			excluded++
		case errors.Is(err, domain.ErrUnknownRegion):
			unknown++
		default:
			p.errorf("line %d: %v", line, err)
		}
	}
	p.notef("%d parsed, %d excluded, %d unresolved", parsed, excluded, unknown)
	return p
}
