package kv

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"github.com/uber/h3-go/v4"

	"lintang/trafficspeed/pkg/concurrent"
	"lintang/trafficspeed/pkg/datastructure"
	"lintang/trafficspeed/pkg/geo"
)

const h3Resolution = 9

// SmallSegment yang disimpan per h3 cell, cukup id segment dan titik tengahnya.
type SmallSegment struct {
	CenterLoc []float64 // [lat, lon]
	SegmentID int64
}

type saveSegmentsJob struct {
	key  string
	segs []SmallSegment
}

func cellKey(cell h3.Cell) string {
	return "h3:" + cell.String()
}

// CreateSegmentKV index semua segment (titik tengah polyline) ke h3 cell resolusi 9 lalu simpan ke pebble.
func (k *KVDB) CreateSegmentKV(ctx context.Context, net *datastructure.RoadNetwork, workers int) error {
	bar := progressbar.NewOptions(net.NumSegments(),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription("[cyan][3/3][reset] membuat h3 index untuk segment..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	cells := make(map[string][]SmallSegment)
	for _, segID := range net.SegmentIDs() {
		coords := net.SegmentCoordinates(segID)
		bar.Add(1)
		if len(coords) == 0 {
			continue
		}
		center := geo.PolylineCenter(coords)
		cell := h3.LatLngToCell(h3.NewLatLng(center.Lat, center.Lon), h3Resolution)
		key := cellKey(cell)
		cells[key] = append(cells[key], SmallSegment{CenterLoc: []float64{center.Lat, center.Lon}, SegmentID: segID})
	}

	jobs := make([]saveSegmentsJob, 0, len(cells))
	for key, segs := range cells {
		jobs = append(jobs, saveSegmentsJob{key: key, segs: segs})
	}
	_, _, err := concurrent.RunOrdered(ctx, workers, jobs, func(ctx context.Context, job saveSegmentsJob) (struct{}, error) {
		val, err := Encode(job.segs)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, k.set(job.key, val)
	})
	return err
}

func (k *KVDB) segmentsInCell(cell h3.Cell) ([]SmallSegment, error) {
	val, err := k.get(cellKey(cell))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var segs []SmallSegment
	if err := Decode(val, &segs); err != nil {
		return nil, err
	}
	return segs, nil
}

// GetNearestSegments segment yang titik tengahnya ada di h3 cell sekitar (lat, lon) dengan radius radiusKm.
// Kalau kosong, cari di ring yang lebih jauh sampai level 10. Hasil diurutkan dari yang paling dekat.
func (k *KVDB) GetNearestSegments(lat, lon, radiusKm float64) ([]SmallSegment, error) {
	segs := []SmallSegment{}

	for _, cell := range kRingIndexesArea(lat, lon, radiusKm) {
		found, err := k.segmentsInCell(cell)
		if err != nil {
			return nil, err
		}
		segs = append(segs, found...)
	}

	origin := h3.LatLngToCell(h3.NewLatLng(lat, lon), h3Resolution)
	for lev := 1; lev <= 10 && len(segs) == 0; lev++ {
		for _, cell := range h3.GridDisk(origin, lev) {
			found, err := k.segmentsInCell(cell)
			if err != nil {
				return nil, err
			}
			segs = append(segs, found...)
		}
	}

	if len(segs) == 0 {
		return nil, fmt.Errorf("no segment around (%f, %f): %w", lat, lon, ErrNotFound)
	}

	p := datastructure.NewCoordinate(lat, lon)
	sort.SliceStable(segs, func(i, j int) bool {
		di := geo.HaversineDistance(p, datastructure.NewCoordinate(segs[i].CenterLoc[0], segs[i].CenterLoc[1]))
		dj := geo.HaversineDistance(p, datastructure.NewCoordinate(segs[j].CenterLoc[0], segs[j].CenterLoc[1]))
		return di < dj
	})
	return segs, nil
}

/*
kRingIndexesArea cell di sekitar (lat, lon) yang menutupi lingkaran radius searchRadiusKm.
https://observablehq.com/@nrabinowitz/h3-radius-lookup
*/
func kRingIndexesArea(lat, lon, searchRadiusKm float64) []h3.Cell {
	origin := h3.LatLngToCell(h3.NewLatLng(lat, lon), h3Resolution)
	originArea := h3.CellAreaKm2(origin)
	searchArea := math.Pi * searchRadiusKm * searchRadiusKm

	radius := 0
	diskArea := originArea

	for diskArea < searchArea {
		radius++
		cellCount := float64(3*radius*(radius+1) + 1)
		diskArea = cellCount * originArea
	}

	return h3.GridDisk(origin, radius)
}
