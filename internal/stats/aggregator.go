// Package stats keeps running first/third person counters per region.
package stats

import (
	"math"

	"pubgstats/internal/pubg"
)

// GameMode is one of the six regular modes, or Unknown
type GameMode int

const (
	Unknown GameMode = iota
	Solo
	SoloFPP
	Duo
	DuoFPP
	Squad
	SquadFPP
)

// ParseGameMode maps an API gameMode string onto a regular mode.
// Event and custom variants ("war-solo", "zombie-duo-fpp", ...) are Unknown.
func ParseGameMode(mode string) GameMode {
	switch mode {
	case "solo":
		return Solo
	case "solo-fpp":
		return SoloFPP
	case "duo":
		return Duo
	case "duo-fpp":
		return DuoFPP
	case "squad":
		return Squad
	case "squad-fpp":
		return SquadFPP
	default:
		return Unknown
	}
}

func (m GameMode) String() string {
	switch m {
	case Solo:
		return "solo"
	case SoloFPP:
		return "solo-fpp"
	case Duo:
		return "duo"
	case DuoFPP:
		return "duo-fpp"
	case Squad:
		return "squad"
	case SquadFPP:
		return "squad-fpp"
	default:
		return "unknown"
	}
}

// RegionStats holds the counters for one region.
// FPP+TPP == Total and SoloTotal+DuoTotal+SquadTotal == Total.
type RegionStats struct {
	FPP   int `json:"fpp"`
	TPP   int `json:"tpp"`
	Total int `json:"total"`

	SoloTotal  int `json:"soloTotal"`
	DuoTotal   int `json:"duoTotal"`
	SquadTotal int `json:"squadTotal"`

	Solo     int `json:"solo"`
	SoloFPP  int `json:"soloFpp"`
	Duo      int `json:"duo"`
	DuoFPP   int `json:"duoFpp"`
	Squad    int `json:"squad"`
	SquadFPP int `json:"squadFpp"`
}

// Update applies one observation of mode. Unknown modes are ignored.
func (s *RegionStats) Update(mode GameMode) bool {
	switch mode {
	case Solo:
		s.TPP++
		s.Solo++
		s.SoloTotal++
	case SoloFPP:
		s.FPP++
		s.SoloFPP++
		s.SoloTotal++
	case Duo:
		s.TPP++
		s.Duo++
		s.DuoTotal++
	case DuoFPP:
		s.FPP++
		s.DuoFPP++
		s.DuoTotal++
	case Squad:
		s.TPP++
		s.Squad++
		s.SquadTotal++
	case SquadFPP:
		s.FPP++
		s.SquadFPP++
		s.SquadTotal++
	default:
		return false
	}
	s.Total++
	return true
}

// Observation is what the aggregator needs to know about an accepted match
type Observation struct {
	Region        pubg.Region
	GameMode      string
	IsCustomMatch bool
}

// Aggregator tracks RegionStats for every known region.
// It is not safe for concurrent use; the ingestion loop owns it.
type Aggregator struct {
	regions map[pubg.Region]*RegionStats
}

// NewAggregator creates zeroed counters for all eleven regions
func NewAggregator() *Aggregator {
	a := &Aggregator{
		regions: make(map[pubg.Region]*RegionStats, len(pubg.Regions)),
	}
	for _, r := range pubg.Regions {
		a.regions[r] = &RegionStats{}
	}
	return a
}

// Inc counts a match unless it is a custom game or its region is untracked.
// Returns true when a counter changed.
func (a *Aggregator) Inc(obs Observation) bool {
	if obs.IsCustomMatch {
		return false
	}
	rs, ok := a.regions[obs.Region]
	if !ok {
		return false
	}
	return rs.Update(ParseGameMode(obs.GameMode))
}

// Total is the number of counted matches across all regions
func (a *Aggregator) Total() int {
	total := 0
	for _, rs := range a.regions {
		total += rs.Total
	}
	return total
}

// Snapshot returns a copy of the counters for region
func (a *Aggregator) Snapshot(region pubg.Region) (RegionStats, bool) {
	rs, ok := a.regions[region]
	if !ok {
		return RegionStats{}, false
	}
	return *rs, true
}

// RegionBreakdown is the percentage view of one region. Values are in
// [0,100]; NaN marks a bucket with no observations.
type RegionBreakdown struct {
	Region pubg.Region
	Name   string
	Total  int

	Share float64
	FPP   float64
	TPP   float64

	SoloTPP  float64
	SoloFPP  float64
	DuoTPP   float64
	DuoFPP   float64
	SquadTPP float64
	SquadFPP float64
}

// Breakdown derives percentages for every region with at least one match,
// in pubg.Regions order
func (a *Aggregator) Breakdown() []RegionBreakdown {
	total := a.Total()
	out := make([]RegionBreakdown, 0, len(pubg.Regions))
	for _, r := range pubg.Regions {
		rs := a.regions[r]
		if rs.Total == 0 {
			continue
		}
		out = append(out, RegionBreakdown{
			Region:   r,
			Name:     r.Name(),
			Total:    rs.Total,
			Share:    percent(rs.Total, total),
			FPP:      percent(rs.FPP, rs.Total),
			TPP:      percent(rs.TPP, rs.Total),
			SoloTPP:  percent(rs.Solo, rs.SoloTotal),
			SoloFPP:  percent(rs.SoloFPP, rs.SoloTotal),
			DuoTPP:   percent(rs.Duo, rs.DuoTotal),
			DuoFPP:   percent(rs.DuoFPP, rs.DuoTotal),
			SquadTPP: percent(rs.Squad, rs.SquadTotal),
			SquadFPP: percent(rs.SquadFPP, rs.SquadTotal),
		})
	}
	return out
}

func percent(n, d int) float64 {
	if d == 0 {
		return math.NaN()
	}
	return float64(n) / float64(d) * 100
}
