package merge

import (
	"fmt"
	"math"
	"sort"

	"github.com/sceylan/pyfinder-go/pkg/types"
)

// mergeKey identifies a station across providers: a fully-qualified SNCL
// when every code is present, otherwise a coordinate key rounded to four
// decimal places (roughly 11m) so the same physical station reported
// with slightly different metadata still collides.
func mergeKey(s types.RawStation) string {
	if s.Network != "" && s.Station != "" && s.Location != "" && s.Channel != "" {
		return s.SNCL()
	}
	return fmt.Sprintf("%.4f_%.4f", round4(s.Lat), round4(s.Lon))
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

// Merge combines RRSM and ESM station lists into one, keyed by
// mergeKey. RRSM rows are inserted first; ESM rows for the same key
// overwrite them, since ESM is considered the higher-priority source.
// The result is sorted by PGA descending.
func Merge(rrsm, esm []types.RawStation) []types.RawStation {
	byKey := make(map[string]types.RawStation, len(rrsm)+len(esm))

	for _, s := range rrsm {
		byKey[mergeKey(s)] = s
	}
	for _, s := range esm {
		byKey[mergeKey(s)] = s
	}

	merged := make([]types.RawStation, 0, len(byKey))
	for _, s := range byKey {
		merged = append(merged, s)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].PGACMS2 > merged[j].PGACMS2
	})
	return merged
}
