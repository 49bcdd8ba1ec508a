package datastructure

import (
	"strings"

	"lintang/trafficspeed/pkg/util"
)

const UnclassifiedRoad = "unclassified"

// RoadClassTable highway class per segment and rounded average speed limit per class.
type RoadClassTable struct {
	segmentClass map[int64]string
	classLimit   map[string]float64
}

func NewRoadClassTable(segmentClass map[int64]string, classLimit map[string]float64) *RoadClassTable {
	if segmentClass == nil {
		segmentClass = make(map[int64]string)
	}
	if classLimit == nil {
		classLimit = make(map[string]float64)
	}
	return &RoadClassTable{segmentClass: segmentClass, classLimit: classLimit}
}

func (t *RoadClassTable) Class(segmentID int64) string {
	if c, ok := t.segmentClass[segmentID]; ok && c != "" {
		return c
	}
	return UnclassifiedRoad
}

// ClassSpeedLimit 0 kalau class tidak punya data maxspeed.
func (t *RoadClassTable) ClassSpeedLimit(class string) float64 {
	return t.classLimit[class]
}

func (t *RoadClassTable) SpeedLimit(segmentID int64) float64 {
	return t.ClassSpeedLimit(t.Class(segmentID))
}

func (t *RoadClassTable) IsMotorway(segmentID int64) bool {
	return IsMotorway(t.Class(segmentID))
}

// IsMotorway motorway dan motorway_link.
func IsMotorway(class string) bool {
	return strings.Contains(class, "motorway")
}

// ComputeClassSpeedLimits averages the observed maxspeed of every segment per class and rounds the
// average to the nearest multiple of granularity. Classes without any observation get 0.
func ComputeClassSpeedLimits(segmentClass map[int64]string, segmentMaxSpeed map[int64]float64, granularity float64) map[string]float64 {
	sum := make(map[string]float64)
	count := make(map[string]int)
	for segID, class := range segmentClass {
		if class == "" {
			class = UnclassifiedRoad
		}
		if _, ok := count[class]; !ok {
			count[class] = 0
		}
		speed, ok := segmentMaxSpeed[segID]
		if !ok || speed <= 0 {
			continue
		}
		sum[class] += speed
		count[class]++
	}

	limits := make(map[string]float64, len(count))
	for class, n := range count {
		if n == 0 {
			limits[class] = 0
			continue
		}
		limits[class] = util.RoundToMultiple(sum[class]/float64(n), granularity)
	}
	return limits
}
