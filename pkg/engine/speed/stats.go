package speed

type RejectReason string

const (
	RejectBinSpan       RejectReason = "bin_span"
	RejectSameTimestamp RejectReason = "same_timestamp"
	RejectSamePosition  RejectReason = "same_position"
	RejectBadFix        RejectReason = "bad_fix"
	RejectRouteChange   RejectReason = "route_change"
	RejectNoRoute       RejectReason = "no_route"
	RejectNoMatch       RejectReason = "no_match"
	RejectZeroSpeed     RejectReason = "zero_speed"
)

type Stats struct {
	Files       int
	FailedFiles int
	Pings       int
	Pairs       int
	Accepted    int
	Rejected    map[RejectReason]int
}

func newStats() Stats {
	return Stats{Rejected: make(map[RejectReason]int)}
}

func (s *Stats) merge(o Stats) {
	s.Files += o.Files
	s.FailedFiles += o.FailedFiles
	s.Pings += o.Pings
	s.Pairs += o.Pairs
	s.Accepted += o.Accepted
	for k, v := range o.Rejected {
		s.Rejected[k] += v
	}
}
