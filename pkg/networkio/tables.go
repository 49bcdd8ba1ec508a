package networkio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"lintang/trafficspeed/pkg/datastructure"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	NodesFile              = "nodes.json"
	SegmentsFile           = "segments.json"
	RoutesFile             = "routes.json"
	SegmentClassesFile     = "segment_classes.json"
	ClassSpeedLimitsFile   = "class_speed_limits.json"
	SegmentSpeedLimitsFile = "segment_speed_limits.json"
)

type routeRecord struct {
	Members []int64           `json:"members"`
	Tags    map[string]string `json:"tags"`
}

// LoadTables membaca tabel graph dari dir. Kalau segment_speed_limits.json ada, limit per class dihitung ulang
// dengan pembulatan ke kelipatan granularity.
func LoadTables(dir string, granularity float64) (datastructure.NetworkTables, error) {
	var tables datastructure.NetworkTables

	nodes := map[int64][2]float64{}
	if err := readJSON(filepath.Join(dir, NodesFile), &nodes); err != nil {
		return tables, err
	}
	segments := map[int64][]int64{}
	if err := readJSON(filepath.Join(dir, SegmentsFile), &segments); err != nil {
		return tables, err
	}
	routes := map[int64]routeRecord{}
	if err := readJSON(filepath.Join(dir, RoutesFile), &routes); err != nil {
		return tables, err
	}
	tables.SegmentClass = map[int64]string{}
	if err := readJSON(filepath.Join(dir, SegmentClassesFile), &tables.SegmentClass); err != nil {
		return tables, err
	}

	segmentSpeedLimits := map[int64]float64{}
	err := readJSON(filepath.Join(dir, SegmentSpeedLimitsFile), &segmentSpeedLimits)
	switch {
	case err == nil:
		tables.ClassSpeedLimits = datastructure.ComputeClassSpeedLimits(tables.SegmentClass, segmentSpeedLimits, granularity)
	case errors.Is(err, os.ErrNotExist):
		tables.ClassSpeedLimits = map[string]float64{}
		if err := readJSON(filepath.Join(dir, ClassSpeedLimitsFile), &tables.ClassSpeedLimits); err != nil {
			return tables, err
		}
	default:
		return tables, err
	}

	for _, id := range sortedKeys(nodes) {
		ll := nodes[id]
		tables.Nodes = append(tables.Nodes, datastructure.Node{ID: id, Lat: ll[0], Lon: ll[1]})
	}
	for _, id := range sortedKeys(segments) {
		tables.Segments = append(tables.Segments, datastructure.Segment{ID: id, NodeIDs: segments[id]})
	}
	for _, id := range sortedKeys(routes) {
		r := routes[id]
		tables.Routes = append(tables.Routes, datastructure.Route{ID: id, Members: r.Members, Tags: r.Tags})
	}
	return tables, nil
}

// WriteTables kebalikan LoadTables.
func WriteTables(dir string, tables datastructure.NetworkTables, segmentSpeedLimits map[int64]float64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	nodes := make(map[int64][2]float64, len(tables.Nodes))
	for _, n := range tables.Nodes {
		nodes[n.ID] = [2]float64{n.Lat, n.Lon}
	}
	segments := make(map[int64][]int64, len(tables.Segments))
	for _, s := range tables.Segments {
		segments[s.ID] = s.NodeIDs
	}
	routes := make(map[int64]routeRecord, len(tables.Routes))
	for _, r := range tables.Routes {
		routes[r.ID] = routeRecord{Members: r.Members, Tags: r.Tags}
	}

	files := map[string]interface{}{
		NodesFile:            nodes,
		SegmentsFile:         segments,
		RoutesFile:           routes,
		SegmentClassesFile:   tables.SegmentClass,
		ClassSpeedLimitsFile: tables.ClassSpeedLimits,
	}
	if segmentSpeedLimits != nil {
		files[SegmentSpeedLimitsFile] = segmentSpeedLimits
	}
	for name, v := range files {
		if err := writeJSON(filepath.Join(dir, name), v); err != nil {
			return err
		}
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	bb, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(bb, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	bb, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bb, 0o644)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
