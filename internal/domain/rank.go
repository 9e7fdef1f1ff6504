package domain

import "slices"

// RankRegionsByEventFrequency accumulates event count and magnitude per region and
// orders regions by count, highest first. Ties keep the order in which regions first
// appear in events.
func RankRegionsByEventFrequency(events []SeismicEvent) []RegionRank {
	var ranks []RegionRank
	pos := make(map[string]int)

	for _, e := range events {
		r := e.Region()
		i, seen := pos[r.Name]
		if !seen {
			i = len(ranks)
			pos[r.Name] = i
			ranks = append(ranks, RegionRank{Name: r.Name, Code: r.Code})
		}
		ranks[i].Count++
		ranks[i].TotalMagnitude += e.Magnitude
	}

	slices.SortStableFunc(ranks, func(a, b RegionRank) int {
		return b.Count - a.Count
	})
	return ranks
}
