package datastructure

import (
	"sort"
)

type Node struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (n Node) Coordinate() Coordinate {
	return NewCoordinate(n.Lat, n.Lon)
}

// Segment satu osm way, urutan node = urutan polyline.
type Segment struct {
	ID      int64   `json:"id"`
	NodeIDs []int64 `json:"nodes"`
	Name    string  `json:"name,omitempty"`
}

// Route bus route relation. Members berisi id segment dan id node halte (stop) yang diselang-seling.
type Route struct {
	ID      int64             `json:"id"`
	Members []int64           `json:"members"`
	Tags    map[string]string `json:"tags,omitempty"`
}

func (r Route) Ref() string {
	return r.Tags["ref"]
}

// NetworkTables raw road graph tables, as read from disk or produced by the osm importer.
type NetworkTables struct {
	Nodes            []Node
	Segments         []Segment
	Routes           []Route
	SegmentClass     map[int64]string
	ClassSpeedLimits map[string]float64
}

// RoadNetwork arena of nodes, segments and routes keyed by osm id. Read-only after NewRoadNetwork.
type RoadNetwork struct {
	nodes      []Node
	nodeIdx    map[int64]int32
	segments   []Segment
	segmentIdx map[int64]int32
	routes     []Route
	routeIdx   map[int64]int32

	segmentIDs []int64
	adjacency  map[int64][]int64
	classes    *RoadClassTable
}

// NewRoadNetwork builds the arena. Node references of a segment that cannot be resolved are dropped.
func NewRoadNetwork(tables NetworkTables) *RoadNetwork {
	rn := &RoadNetwork{
		nodes:      make([]Node, 0, len(tables.Nodes)),
		nodeIdx:    make(map[int64]int32, len(tables.Nodes)),
		segments:   make([]Segment, 0, len(tables.Segments)),
		segmentIdx: make(map[int64]int32, len(tables.Segments)),
		routes:     make([]Route, 0, len(tables.Routes)),
		routeIdx:   make(map[int64]int32, len(tables.Routes)),
		classes:    NewRoadClassTable(tables.SegmentClass, tables.ClassSpeedLimits),
	}

	for _, n := range tables.Nodes {
		if _, ok := rn.nodeIdx[n.ID]; ok {
			continue
		}
		rn.nodeIdx[n.ID] = int32(len(rn.nodes))
		rn.nodes = append(rn.nodes, n)
	}

	for _, s := range tables.Segments {
		if _, ok := rn.segmentIdx[s.ID]; ok {
			continue
		}
		resolved := make([]int64, 0, len(s.NodeIDs))
		for _, nID := range s.NodeIDs {
			if _, ok := rn.nodeIdx[nID]; ok {
				resolved = append(resolved, nID)
			}
		}
		rn.segmentIdx[s.ID] = int32(len(rn.segments))
		rn.segments = append(rn.segments, Segment{ID: s.ID, NodeIDs: resolved, Name: s.Name})
		rn.segmentIDs = append(rn.segmentIDs, s.ID)
	}
	sort.Slice(rn.segmentIDs, func(i, j int) bool { return rn.segmentIDs[i] < rn.segmentIDs[j] })

	for _, r := range tables.Routes {
		if _, ok := rn.routeIdx[r.ID]; ok {
			continue
		}
		rn.routeIdx[r.ID] = int32(len(rn.routes))
		rn.routes = append(rn.routes, r)
	}

	rn.adjacency = buildAdjacency(rn.segments)
	return rn
}

// buildAdjacency dua segment bertetangga kalau share minimal satu node.
func buildAdjacency(segments []Segment) map[int64][]int64 {
	nodeSegments := make(map[int64][]int64)
	for _, s := range segments {
		seen := make(map[int64]struct{}, len(s.NodeIDs))
		for _, nID := range s.NodeIDs {
			if _, ok := seen[nID]; ok {
				continue
			}
			seen[nID] = struct{}{}
			nodeSegments[nID] = append(nodeSegments[nID], s.ID)
		}
	}

	neighborSet := make(map[int64]map[int64]struct{}, len(segments))
	for _, s := range segments {
		neighborSet[s.ID] = make(map[int64]struct{})
	}
	for _, segIDs := range nodeSegments {
		for _, a := range segIDs {
			for _, b := range segIDs {
				if a != b {
					neighborSet[a][b] = struct{}{}
				}
			}
		}
	}

	adjacency := make(map[int64][]int64, len(neighborSet))
	for segID, set := range neighborSet {
		neighbors := make([]int64, 0, len(set))
		for n := range set {
			neighbors = append(neighbors, n)
		}
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })
		adjacency[segID] = neighbors
	}
	return adjacency
}

func (rn *RoadNetwork) Node(id int64) (Node, bool) {
	idx, ok := rn.nodeIdx[id]
	if !ok {
		return Node{}, false
	}
	return rn.nodes[idx], true
}

func (rn *RoadNetwork) Segment(id int64) (Segment, bool) {
	idx, ok := rn.segmentIdx[id]
	if !ok {
		return Segment{}, false
	}
	return rn.segments[idx], true
}

func (rn *RoadNetwork) IsSegment(id int64) bool {
	_, ok := rn.segmentIdx[id]
	return ok
}

func (rn *RoadNetwork) Route(id int64) (Route, bool) {
	idx, ok := rn.routeIdx[id]
	if !ok {
		return Route{}, false
	}
	return rn.routes[idx], true
}

func (rn *RoadNetwork) Nodes() []Node {
	return rn.nodes
}

func (rn *RoadNetwork) Routes() []Route {
	return rn.routes
}

// SegmentIDs sorted ascending.
func (rn *RoadNetwork) SegmentIDs() []int64 {
	return rn.segmentIDs
}

func (rn *RoadNetwork) NumSegments() int {
	return len(rn.segments)
}

// Neighbors sorted ascending.
func (rn *RoadNetwork) Neighbors(segmentID int64) []int64 {
	return rn.adjacency[segmentID]
}

func (rn *RoadNetwork) Adjacency() map[int64][]int64 {
	return rn.adjacency
}

func (rn *RoadNetwork) Classes() *RoadClassTable {
	return rn.classes
}

// SegmentCoordinates polyline of a segment, resolved nodes only.
func (rn *RoadNetwork) SegmentCoordinates(segmentID int64) []Coordinate {
	s, ok := rn.Segment(segmentID)
	if !ok {
		return nil
	}
	coords := make([]Coordinate, 0, len(s.NodeIDs))
	for _, nID := range s.NodeIDs {
		n, _ := rn.Node(nID)
		coords = append(coords, n.Coordinate())
	}
	return coords
}

// Tables re-exports the arena as raw tables, used when saving the binary container.
func (rn *RoadNetwork) Tables() NetworkTables {
	return NetworkTables{
		Nodes:            rn.nodes,
		Segments:         rn.segments,
		Routes:           rn.routes,
		SegmentClass:     rn.classes.segmentClass,
		ClassSpeedLimits: rn.classes.classLimit,
	}
}
