package importservice

import (
	"sort"
	"strconv"

	"github.com/bbernstein/lacylights-console/internal/fixture"
)

func presetKey(featureSet string, index int) string {
	return featureSet + "." + strconv.Itoa(index)
}

func overlapping(fixtures map[int]*fixture.Fixture, f *fixture.Fixture) *fixture.Fixture {
	for number, other := range fixtures {
		if number != f.Number && f.Overlaps(other) {
			return other
		}
	}
	return nil
}

func hasFixtureID(fixtures map[int]*fixture.Fixture, id string) bool {
	for _, f := range fixtures {
		if f.ID == id {
			return true
		}
	}
	return false
}

func sortedFixtures(fixtures map[int]*fixture.Fixture) []*fixture.Fixture {
	out := make([]*fixture.Fixture, 0, len(fixtures))
	for _, n := range sortedKeys(fixtures) {
		out = append(out, fixtures[n])
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
