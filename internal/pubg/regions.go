package pubg

import "regexp"

// Region is a server region code as it appears in telemetry match ids
type Region string

const (
	RegionAsia          Region = "as"
	RegionEurope        Region = "eu"
	RegionJapan         Region = "jp"
	RegionKakao         Region = "kakao"
	RegionKorea         Region = "krjp"
	RegionNorthAmerica  Region = "na"
	RegionOceania       Region = "oc"
	RegionRussia        Region = "ru"
	RegionSouthAmerica  Region = "sa"
	RegionSouthEastAsia Region = "sea"
	RegionTournament    Region = "tournament"
)

// Regions lists every tracked region in display order
var Regions = []Region{
	RegionAsia,
	RegionEurope,
	RegionJapan,
	RegionKakao,
	RegionKorea,
	RegionNorthAmerica,
	RegionOceania,
	RegionRussia,
	RegionSouthAmerica,
	RegionSouthEastAsia,
	RegionTournament,
}

var regionNames = map[Region]string{
	RegionAsia:          "Asia",
	RegionEurope:        "Europe",
	RegionJapan:         "Japan",
	RegionKakao:         "Kakao",
	RegionKorea:         "Korea",
	RegionNorthAmerica:  "North America",
	RegionOceania:       "Oceania",
	RegionRussia:        "Russia",
	RegionSouthAmerica:  "South and Central America",
	RegionSouthEastAsia: "South East Asia",
	RegionTournament:    "Tournaments",
}

// Name returns the display name, or the raw code for unknown regions
func (r Region) Name() string {
	if name, ok := regionNames[r]; ok {
		return name
	}
	return string(r)
}

// Known reports whether r is one of the eleven tracked regions
func (r Region) Known() bool {
	_, ok := regionNames[r]
	return ok
}

// Only PC telemetry ids carry a region token; console ids never match.
var pcRegionPattern = regexp.MustCompile(`\.pc-.*\.(as|eu|jp|kakao|krjp|na|oc|ru|sa|sea|tournament)\.`)

// ExtractRegion pulls the region code out of a telemetry MatchId such as
// "match.bro.official.pc-2018-04.steam.squad-fpp.na.2023.06.01.00.abcd"
func ExtractRegion(matchID string) (Region, bool) {
	m := pcRegionPattern.FindStringSubmatch(matchID)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return Region(m[1]), true
}

// RegularModes are the six team-size/perspective modes tracked in statistics
var RegularModes = []string{
	"duo",
	"duo-fpp",
	"solo",
	"solo-fpp",
	"squad",
	"squad-fpp",
}

// AllModes is the full catalogue of game modes the API reports
var AllModes = []string{
	"duo",
	"duo-fpp",
	"solo",
	"solo-fpp",
	"squad",
	"squad-fpp",
	"conquest-duo",
	"conquest-duo-fpp",
	"conquest-solo",
	"conquest-solo-fpp",
	"conquest-squad",
	"conquest-squad-fpp",
	"esports-duo",
	"esports-duo-fpp",
	"esports-solo",
	"esports-solo-fpp",
	"esports-squad",
	"esports-squad-fpp",
	"normal-duo",
	"normal-duo-fpp",
	"normal-solo",
	"normal-solo-fpp",
	"normal-squad",
	"normal-squad-fpp",
	"war-duo",
	"war-duo-fpp",
	"war-solo",
	"war-solo-fpp",
	"war-squad",
	"war-squad-fpp",
	"zombie-duo",
	"zombie-duo-fpp",
	"zombie-solo",
	"zombie-solo-fpp",
	"zombie-squad",
	"zombie-squad-fpp",
}

var knownModes = func() map[string]bool {
	m := make(map[string]bool, len(AllModes))
	for _, mode := range AllModes {
		m[mode] = true
	}
	return m
}()

// IsKnownMode reports whether mode is in the catalogue
func IsKnownMode(mode string) bool {
	return knownModes[mode]
}
