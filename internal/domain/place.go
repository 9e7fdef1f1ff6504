package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExcludedRegion marks places that fall inside the query bounding box but
	// outside the insured territory (Canada, Mexico).
	ErrExcludedRegion = errors.New("region excluded from insured territory")

	// ErrUnknownRegion marks designators missing from the RegionTable.
	ErrUnknownRegion = errors.New("region not recognised")
)

// excludedDesignators are matched exactly against the last token of a place text.
var excludedDesignators = map[string]struct{}{
	"Canada": {},
	"CAN":    {},
	"Mexico": {},
	"MX":     {},
}

// placeSeparator splits USGS place text into locality and designator.
const placeSeparator = ", "

// ResolvePlaceText maps a USGS place string to its region. The last ", "-separated
// token is the designator; everything before it is kept as the description.
// Excluded or unknown designators return an error wrapping ErrExcludedRegion or
// ErrUnknownRegion; both mean "no region" and are not fatal to the caller.
func (t *RegionTable) ResolvePlaceText(place string) (Place, error) {
	tokens := strings.Split(place, placeSeparator)
	designator := strings.TrimSpace(tokens[len(tokens)-1])
	description := strings.Join(tokens[:len(tokens)-1], placeSeparator)

	if _, skip := excludedDesignators[designator]; skip {
		return Place{}, fmt.Errorf("%q: %w", designator, ErrExcludedRegion)
	}

	region, ok := t.Lookup(designator)
	if !ok {
		return Place{}, fmt.Errorf("%q: %w", designator, ErrUnknownRegion)
	}
	return Place{Description: description, Region: region}, nil
}
