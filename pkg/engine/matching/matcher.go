package matching

import (
	"errors"
	"math"
	"sort"

	"go.uber.org/zap"

	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/geo"
)

var (
	ErrNoCandidateRoute = errors.New("no candidate segment for the given routes")
	ErrNoMatch          = errors.New("no segment matched")
)

// Match titik hasil snapping ke segment (node atau proyeksi di dalam edge).
type Match struct {
	Point     datastructure.Coordinate
	SegmentID int64
	Distance  float64
}

type Matcher struct {
	net   *datastructure.RoadNetwork
	index *NodeIndex
	log   *zap.Logger
}

func NewMatcher(net *datastructure.RoadNetwork, log *zap.Logger) *Matcher {
	return &Matcher{
		net:   net,
		index: NewNodeIndex(net),
		log:   log,
	}
}

// CandidateSegments union of the segment members of the given routes, sorted ascending.
func (m *Matcher) CandidateSegments(routeIDs []int64) []int64 {
	set := make(map[int64]struct{})
	for _, rID := range routeIDs {
		r, ok := m.net.Route(rID)
		if !ok {
			continue
		}
		for _, member := range r.Members {
			if m.net.IsSegment(member) {
				set[member] = struct{}{}
			}
		}
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Match snap point ke segment terdekat yang dilewati salah satu route candidateRouteIDs.
func (m *Matcher) Match(point datastructure.Coordinate, candidateRouteIDs []int64, margin float64) (Match, error) {
	candidates := m.CandidateSegments(candidateRouteIDs)
	if len(candidates) == 0 {
		return Match{}, ErrNoCandidateRoute
	}

	near := m.index.SegmentsNear(point, margin)
	filtered := make([]int64, 0, len(candidates))
	for _, segID := range candidates {
		if _, ok := near[segID]; ok {
			filtered = append(filtered, segID)
		}
	}
	// biasanya terjadi di ujung route
	if len(filtered) == 0 {
		filtered = candidates
	}

	// coarse pass
	minDist := math.Inf(1)
	var (
		best      Match
		bestNodes []int64
		bestIdx   = -1
	)
	for _, segID := range filtered {
		s, _ := m.net.Segment(segID)
		if len(s.NodeIDs) < 2 {
			continue
		}
		for i, nID := range s.NodeIDs {
			n, _ := m.net.Node(nID)
			d := geo.FastDistance(n.Coordinate(), point)
			if d < minDist {
				minDist = d
				best = Match{Point: n.Coordinate(), SegmentID: segID, Distance: d}
				bestNodes = s.NodeIDs
				bestIdx = i
			}
		}
	}
	if bestIdx < 0 {
		m.log.Debug("no segment matched", zap.Float64("lat", point.Lat), zap.Float64("lon", point.Lon),
			zap.Int64s("routes", candidateRouteIDs))
		return Match{}, ErrNoMatch
	}

	// fine pass, proyeksi ke edge di sekitar node terdekat
	lo, hi := fineEdgeRange(len(bestNodes), bestIdx)
	for i := lo; i <= hi; i++ {
		a, _ := m.net.Node(bestNodes[i])
		b, _ := m.net.Node(bestNodes[i+1])
		proj, ok := geo.ProjectOntoEdge(a.Coordinate(), b.Coordinate(), point)
		if !ok {
			continue
		}
		d := geo.FastDistance(proj, point)
		if d < best.Distance {
			best.Point = proj
			best.Distance = d
		}
	}
	return best, nil
}

// fineEdgeRange inclusive range of edge indices (edge i = node i -> node i+1) to project on.
func fineEdgeRange(numNodes, nodeIdx int) (int, int) {
	lastEdge := numNodes - 2
	switch {
	case numNodes <= 3:
		return 0, lastEdge
	case nodeIdx == 0:
		return 0, 0
	case nodeIdx == numNodes-1:
		return lastEdge, lastEdge
	default:
		return max(0, nodeIdx-1), min(lastEdge, nodeIdx+1)
	}
}
