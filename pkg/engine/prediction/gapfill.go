package prediction

import (
	"sort"

	"lintang/trafficspeed/pkg/datastructure"
)

type GapFillOptions struct {
	MotorwayMultiplier float64
	DefaultSpeedLimit  float64
}

func speedLimit(classes *datastructure.RoadClassTable, segmentID int64, opts GapFillOptions) float64 {
	limit := classes.SpeedLimit(segmentID)
	if limit <= 0 {
		return opts.DefaultSpeedLimit
	}
	return limit
}

// GapFill BFS dari segment dengan id terkecil yang speed > 0. Segment yang speed <= 0 diisi rata-rata speed tetangga
// yang sudah terisi plus speed limit class-nya. Komponen yang tidak terjangkau dari root tidak diubah.
func GapFill(speeds map[int64]float64, net *datastructure.RoadNetwork, opts GapFillOptions) {
	classes := net.Classes()

	ids := make([]int64, 0, len(speeds))
	for id := range speeds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	root, found := int64(0), false
	for _, id := range ids {
		if speeds[id] > 0 {
			root, found = id, true
			break
		}
	}
	// tidak ada data sama sekali, anggap semua jalan lancar
	if !found {
		for _, id := range ids {
			speeds[id] = speedLimit(classes, id, opts)
		}
		return
	}

	explored := map[int64]struct{}{root: {}}
	queue := []int64{root}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		if speeds[curr] <= 0 {
			currMotorway := classes.IsMotorway(curr)
			samples := []float64{}
			for _, nb := range net.Neighbors(curr) {
				v := speeds[nb]
				if v <= 0 {
					continue
				}
				nbMotorway := classes.IsMotorway(nb)
				switch {
				case currMotorway == nbMotorway:
					samples = append(samples, v)
				case currMotorway:
					samples = append(samples, v*opts.MotorwayMultiplier)
				default:
					samples = append(samples, v/opts.MotorwayMultiplier)
				}
			}
			samples = append(samples, speedLimit(classes, curr, opts))

			sum := 0.0
			for _, s := range samples {
				sum += s
			}
			speeds[curr] = sum / float64(len(samples))
		}

		for _, nb := range net.Neighbors(curr) {
			if _, ok := explored[nb]; ok {
				continue
			}
			explored[nb] = struct{}{}
			queue = append(queue, nb)
		}
	}
}
