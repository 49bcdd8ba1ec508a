package speed

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"lintang/trafficspeed/pkg/datastructure"
)

var routeNumberRe = regexp.MustCompile(`^[0-9]+`)

// RouteIndex nomor route bus -> relation ids, dari prefix angka tag ref relation.
type RouteIndex struct {
	byNumber map[int][]int64
	routes   []datastructure.Route
}

func NewRouteIndex(routes []datastructure.Route) *RouteIndex {
	idx := &RouteIndex{byNumber: make(map[int][]int64), routes: routes}
	for _, r := range routes {
		prefix := routeNumberRe.FindString(r.Ref())
		if prefix == "" {
			continue
		}
		n, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		idx.byNumber[n] = append(idx.byNumber[n], r.ID)
	}
	for n := range idx.byNumber {
		ids := idx.byNumber[n]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return idx
}

// Resolve candidate relation ids of a ping route id. Falls back to a substring match on ref.
func (idx *RouteIndex) Resolve(routeID string) []int64 {
	if n, err := strconv.Atoi(routeID); err == nil {
		if ids, ok := idx.byNumber[n]; ok {
			return ids
		}
	}
	if routeID == "" {
		return nil
	}

	var out []int64
	for _, r := range idx.routes {
		if strings.Contains(r.Ref(), routeID) {
			out = append(out, r.ID)
		}
	}
	return out
}
