package osmparser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/k0kubun/go-ansi"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"lintang/trafficspeed/pkg/datastructure"
)

type Options struct {
	// NameContains kalau tidak kosong, hanya route relation yang namanya mengandung string ini.
	NameContains string
	NameExcludes []string
	SpeedUnit    string
	Granularity  float64
	Progress     bool
}

type Result struct {
	Tables             datastructure.NetworkTables
	SegmentSpeedLimits map[int64]float64
}

// OSMParser ambil bus route relation beserta way dan node yang dipakai route tsb. File dibaca 3 kali
// (relation, way, node) karena urutan di pbf node dulu baru way lalu relation.
type OSMParser struct {
	opts Options
	log  *zap.Logger

	wayMembers  map[int64]struct{}
	nodeMembers map[int64]struct{}
	usedNodes   map[int64]struct{}
}

func NewOSMParser(opts Options, log *zap.Logger) *OSMParser {
	return &OSMParser{
		opts:        opts,
		log:         log,
		wayMembers:  make(map[int64]struct{}),
		nodeMembers: make(map[int64]struct{}),
		usedNodes:   make(map[int64]struct{}),
	}
}

type pass int

const (
	passRelations pass = iota
	passWays
	passNodes
)

func openScanner(ctx context.Context, mapFile string, p pass) (osm.Scanner, *os.File, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, nil, err
	}
	ext := strings.ToLower(filepath.Ext(mapFile))
	if ext == ".osm" || ext == ".xml" {
		return osmxml.New(ctx, f), f, nil
	}

	s := osmpbf.New(ctx, f, 0)
	s.SkipNodes = p != passNodes
	s.SkipWays = p != passWays
	s.SkipRelations = p != passRelations
	return s, f, nil
}

func (p *OSMParser) newBar(desc string) *progressbar.ProgressBar {
	if !p.opts.Progress {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
	)
}

func (p *OSMParser) acceptRelation(rel *osm.Relation) bool {
	if rel.Tags.Find("type") != "route" || rel.Tags.Find("route") != "bus" {
		return false
	}
	name := rel.Tags.Find("name")
	if p.opts.NameContains != "" && !strings.Contains(name, p.opts.NameContains) {
		return false
	}
	for _, ex := range p.opts.NameExcludes {
		if ex != "" && strings.Contains(name, ex) {
			return false
		}
	}
	return true
}

func (p *OSMParser) scan(ctx context.Context, mapFile string, ps pass, desc string, fn func(o osm.Object)) error {
	s, f, err := openScanner(ctx, mapFile, ps)
	if err != nil {
		return err
	}
	defer f.Close()
	defer s.Close()

	bar := p.newBar(desc)
	for s.Scan() {
		fn(s.Object())
		if bar != nil {
			bar.Add(1)
		}
	}
	return s.Err()
}

// Parse baca file osm (.osm.pbf, atau .osm xml).
func (p *OSMParser) Parse(ctx context.Context, mapFile string) (*Result, error) {
	routes := []datastructure.Route{}
	err := p.scan(ctx, mapFile, passRelations, "[cyan][1/3][reset] scanning bus route relations...", func(o osm.Object) {
		rel, ok := o.(*osm.Relation)
		if !ok || !p.acceptRelation(rel) {
			return
		}
		route := datastructure.Route{ID: int64(rel.ID), Tags: rel.Tags.Map()}
		for _, m := range rel.Members {
			switch m.Type {
			case osm.TypeWay:
				p.wayMembers[m.Ref] = struct{}{}
			case osm.TypeNode:
				p.nodeMembers[m.Ref] = struct{}{}
				p.usedNodes[m.Ref] = struct{}{}
			default:
				continue
			}
			route.Members = append(route.Members, m.Ref)
		}
		routes = append(routes, route)
	})
	if err != nil {
		return nil, fmt.Errorf("scan relations %s: %w", mapFile, err)
	}
	p.log.Sugar().Infof("found %d bus route relations, %d member ways", len(routes), len(p.wayMembers))

	segments := []datastructure.Segment{}
	segmentClass := make(map[int64]string)
	segmentMaxSpeed := make(map[int64]float64)
	err = p.scan(ctx, mapFile, passWays, "[cyan][2/3][reset] scanning route ways...", func(o osm.Object) {
		way, ok := o.(*osm.Way)
		if !ok {
			return
		}
		id := int64(way.ID)
		if _, ok := p.wayMembers[id]; !ok {
			return
		}
		seg := datastructure.Segment{ID: id, Name: way.Tags.Find("name"), NodeIDs: make([]int64, 0, len(way.Nodes))}
		for _, wn := range way.Nodes {
			seg.NodeIDs = append(seg.NodeIDs, int64(wn.ID))
			p.usedNodes[int64(wn.ID)] = struct{}{}
		}
		segments = append(segments, seg)

		if class := way.Tags.Find("highway"); class != "" {
			segmentClass[id] = class
		}
		if v, ok := ParseMaxSpeed(way.Tags.Find("maxspeed"), p.opts.SpeedUnit); ok {
			segmentMaxSpeed[id] = v
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scan ways %s: %w", mapFile, err)
	}

	nodes := []datastructure.Node{}
	err = p.scan(ctx, mapFile, passNodes, "[cyan][3/3][reset] scanning route nodes...", func(o osm.Object) {
		n, ok := o.(*osm.Node)
		if !ok {
			return
		}
		if _, ok := p.usedNodes[int64(n.ID)]; !ok {
			return
		}
		nodes = append(nodes, datastructure.Node{ID: int64(n.ID), Lat: n.Lat, Lon: n.Lon})
	})
	if err != nil {
		return nil, fmt.Errorf("scan nodes %s: %w", mapFile, err)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	sort.Slice(segments, func(i, j int) bool { return segments[i].ID < segments[j].ID })
	sort.Slice(routes, func(i, j int) bool { return routes[i].ID < routes[j].ID })

	if missing := len(p.wayMembers) - len(segments); missing > 0 {
		p.log.Warn("route ways not present in the extract", zap.Int("count", missing))
	}
	p.log.Sugar().Infof("bus network: %d nodes, %d segments, %d routes", len(nodes), len(segments), len(routes))

	return &Result{
		Tables: datastructure.NetworkTables{
			Nodes:            nodes,
			Segments:         segments,
			Routes:           routes,
			SegmentClass:     segmentClass,
			ClassSpeedLimits: datastructure.ComputeClassSpeedLimits(segmentClass, segmentMaxSpeed, p.opts.Granularity),
		},
		SegmentSpeedLimits: segmentMaxSpeed,
	}, nil
}
