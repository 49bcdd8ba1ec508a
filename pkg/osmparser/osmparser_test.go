package osmparser_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lintang/trafficspeed/pkg/config"
	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/osmparser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseMaxSpeed(t *testing.T) {
	cases := []struct {
		tag  string
		unit string
		want float64
		ok   bool
	}{
		{"25 mph", config.SpeedUnitMPH, 25, true},
		{"30mph", config.SpeedUnitMPH, 30, true},
		{"25 mph", config.SpeedUnitKMH, 25 * 1.609344, true},
		{"50", config.SpeedUnitKMH, 50, true},
		{"80 km/h", config.SpeedUnitKMH, 80, true},
		{"80.4672", config.SpeedUnitMPH, 50, true},
		{"30;50", config.SpeedUnitKMH, 30, true},
		{"none", config.SpeedUnitMPH, 0, false},
		{"signals", config.SpeedUnitMPH, 0, false},
		{"", config.SpeedUnitMPH, 0, false},
		{"-10", config.SpeedUnitMPH, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.tag+"_"+tc.unit, func(t *testing.T) {
			got, ok := osmparser.ParseMaxSpeed(tc.tag, tc.unit)
			assert.Equal(t, tc.ok, ok)
			assert.InDelta(t, tc.want, got, 1e-6)
		})
	}
}

const testOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="42.90" lon="-78.80"/>
  <node id="2" lat="42.91" lon="-78.80"/>
  <node id="3" lat="42.92" lon="-78.80"/>
  <node id="4" lat="42.93" lon="-78.81"/>
  <node id="5" lat="43.00" lon="-79.00"/>
  <node id="6" lat="43.01" lon="-79.00"/>
  <way id="10">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="primary"/>
    <tag k="maxspeed" v="30 mph"/>
    <tag k="name" v="Main Street"/>
  </way>
  <way id="11">
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="primary"/>
    <tag k="maxspeed" v="40 mph"/>
  </way>
  <way id="12">
    <nd ref="3"/>
    <nd ref="4"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="20">
    <nd ref="5"/>
    <nd ref="6"/>
    <tag k="highway" v="motorway"/>
  </way>
  <relation id="100">
    <member type="node" ref="1" role="stop"/>
    <member type="way" ref="10" role=""/>
    <member type="way" ref="11" role=""/>
    <member type="way" ref="12" role=""/>
    <member type="way" ref="99" role=""/>
    <tag k="type" v="route"/>
    <tag k="route" v="bus"/>
    <tag k="ref" v="5"/>
    <tag k="name" v="NFTA 5 Niagara"/>
  </relation>
  <relation id="200">
    <member type="way" ref="20" role=""/>
    <tag k="type" v="route"/>
    <tag k="route" v="train"/>
    <tag k="name" v="NFTA Metro Rail"/>
  </relation>
  <relation id="300">
    <member type="way" ref="20" role=""/>
    <tag k="type" v="route"/>
    <tag k="route" v="bus"/>
    <tag k="name" v="Other Transit 1"/>
  </relation>
</osm>`

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buffalo.osm")
	require.NoError(t, os.WriteFile(path, []byte(testOSM), 0o644))

	p := osmparser.NewOSMParser(osmparser.Options{
		NameContains: "NFTA",
		NameExcludes: []string{"Metro Rail"},
		SpeedUnit:    config.SpeedUnitMPH,
		Granularity:  5,
	}, zap.NewNop())

	res, err := p.Parse(context.Background(), path)
	require.NoError(t, err)
	tables := res.Tables

	require.Len(t, tables.Routes, 1)
	assert.Equal(t, int64(100), tables.Routes[0].ID)
	assert.Equal(t, []int64{1, 10, 11, 12, 99}, tables.Routes[0].Members)
	assert.Equal(t, "5", tables.Routes[0].Ref())

	segIDs := []int64{}
	for _, s := range tables.Segments {
		segIDs = append(segIDs, s.ID)
	}
	assert.Equal(t, []int64{10, 11, 12}, segIDs)
	assert.Equal(t, "Main Street", tables.Segments[0].Name)

	nodeIDs := []int64{}
	for _, n := range tables.Nodes {
		nodeIDs = append(nodeIDs, n.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, nodeIDs)

	assert.Equal(t, map[int64]string{10: "primary", 11: "primary", 12: "residential"}, tables.SegmentClass)
	assert.Equal(t, map[int64]float64{10: 30, 11: 40}, res.SegmentSpeedLimits)
	assert.Equal(t, 35.0, tables.ClassSpeedLimits["primary"])
	assert.Equal(t, 0.0, tables.ClassSpeedLimits["residential"])

	net := datastructure.NewRoadNetwork(tables)
	assert.Equal(t, []int64{10, 12}, net.Neighbors(11))
}
