package matching

import (
	"github.com/dhconnelly/rtreego"

	"lintang/trafficspeed/pkg/datastructure"
)

var tol = 1e-9

type nodeRect struct {
	location rtreego.Point
	nodeID   int64
}

func (n *nodeRect) Bounds() rtreego.Rect {
	return n.location.ToRect(tol)
}

// NodeIndex rtree semua node yang dipakai segment, dipakai buat coarse filter matcher.
type NodeIndex struct {
	tree         *rtreego.Rtree
	nodeSegments map[int64][]int64
}

func NewNodeIndex(net *datastructure.RoadNetwork) *NodeIndex {
	idx := &NodeIndex{
		tree:         rtreego.NewTree(2, 25, 50), // 2 dimensi, 25 min entries, 50 max entries
		nodeSegments: make(map[int64][]int64),
	}

	for _, segID := range net.SegmentIDs() {
		s, _ := net.Segment(segID)
		for _, nID := range s.NodeIDs {
			segs := idx.nodeSegments[nID]
			if len(segs) > 0 && segs[len(segs)-1] == segID {
				continue
			}
			idx.nodeSegments[nID] = append(segs, segID)
		}
	}

	for nID := range idx.nodeSegments {
		n, _ := net.Node(nID)
		idx.tree.Insert(&nodeRect{location: rtreego.Point{n.Lat, n.Lon}, nodeID: nID})
	}
	return idx
}

// SegmentsNear segment ids having a node strictly within margin degrees of p on both axes.
func (idx *NodeIndex) SegmentsNear(p datastructure.Coordinate, margin float64) map[int64]struct{} {
	out := make(map[int64]struct{})
	bb, err := rtreego.NewRect(rtreego.Point{p.Lat - margin, p.Lon - margin}, []float64{2 * margin, 2 * margin})
	if err != nil {
		return out
	}

	for _, item := range idx.tree.SearchIntersect(bb) {
		n := item.(*nodeRect)
		dLat := n.location[0] - p.Lat
		dLon := n.location[1] - p.Lon
		if dLat <= -margin || dLat >= margin || dLon <= -margin || dLon >= margin {
			continue
		}
		for _, segID := range idx.nodeSegments[n.nodeID] {
			out[segID] = struct{}{}
		}
	}
	return out
}
