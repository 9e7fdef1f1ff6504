package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/quake-risk/internal/domain"
)

// Client location CSV columns.
const (
	ColumnBuildingName = "Building Name"
	ColumnLocation     = "Location"
	ColumnFullAddress  = "Full Address"
)

type clientRow struct {
	BuildingName string `csv:"Building Name"`
	Location     string `csv:"Location"`
	FullAddress  string `csv:"Full Address"`
}

// MalformedLocationError reports a Location value that is not "City, Region".
type MalformedLocationError struct {
	Line     int
	Building string
	Location string
}

func (e *MalformedLocationError) Error() string {
	return fmt.Sprintf("line %d (%s): location %q is not \"City, Region\"", e.Line, e.Building, e.Location)
}

// ParseTargets reads client locations without geocoding them. Any malformed
// Location aborts the parse with a *MalformedLocationError.
func ParseTargets(r io.Reader) ([]domain.TargetLocation, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("client locations: empty input")
		}
		return nil, fmt.Errorf("client locations: read header: %w", err)
	}
	if err := requireColumns(dec.Header()); err != nil {
		return nil, err
	}

	var targets []domain.TargetLocation
	for line := 2; ; line++ {
		var row clientRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return targets, nil
			}
			return nil, fmt.Errorf("client locations: line %d: %w", line, err)
		}

		city, region, ok := splitLocation(row.Location)
		if !ok {
			return nil, &MalformedLocationError{Line: line, Building: row.BuildingName, Location: row.Location}
		}
		targets = append(targets, domain.TargetLocation{
			Name:        strings.TrimSpace(row.BuildingName),
			Location:    row.Location,
			City:        city,
			Region:      region,
			FullAddress: strings.TrimSpace(row.FullAddress),
		})
	}
}

// ParseTargetsFile is ParseTargets over a file.
func ParseTargetsFile(path string) ([]domain.TargetLocation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open client locations: %w", err)
	}
	defer f.Close()
	return ParseTargets(f)
}

// LocateTargets geocodes every target with up to concurrency lookups in flight and
// returns them in input order. The first failure cancels the rest and is returned.
func LocateTargets(ctx context.Context, targets []domain.TargetLocation, geocoder domain.Geocoder, concurrency int, logger *slog.Logger) ([]domain.TargetLocation, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	located := make([]domain.TargetLocation, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, target := range targets {
		g.Go(func() error {
			t, err := domain.LocateTarget(gctx, target, geocoder, logger)
			if err != nil {
				return err
			}
			located[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return located, nil
}

// LoadTargets parses and geocodes the client locations in r.
func LoadTargets(ctx context.Context, r io.Reader, geocoder domain.Geocoder, concurrency int, logger *slog.Logger) ([]domain.TargetLocation, error) {
	targets, err := ParseTargets(r)
	if err != nil {
		return nil, err
	}
	logger.Info("client locations parsed", "count", len(targets))
	return LocateTargets(ctx, targets, geocoder, concurrency, logger)
}

func splitLocation(loc string) (city, region string, ok bool) {
	if strings.Count(loc, ",") != 1 {
		return "", "", false
	}
	city, region, _ = strings.Cut(loc, ",")
	city, region = strings.TrimSpace(city), strings.TrimSpace(region)
	if city == "" || region == "" {
		return "", "", false
	}
	return city, region, true
}

func requireColumns(header []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range []string{ColumnBuildingName, ColumnLocation, ColumnFullAddress} {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("client locations: missing columns %q", missing)
	}
	return nil
}
