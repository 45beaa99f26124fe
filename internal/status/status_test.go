package status

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"pubgstats/internal/pubg"
	"pubgstats/internal/stats"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	assert.Equal(t, "n/a", Percent(math.NaN()))
	assert.Equal(t, "50%", Percent(50))
	assert.Equal(t, "33%", Percent(100.0/3))
	assert.Equal(t, "0%", Percent(0))
}

func TestRender(t *testing.T) {
	agg := stats.NewAggregator()
	agg.Inc(stats.Observation{Region: pubg.RegionNorthAmerica, GameMode: "squad-fpp"})
	agg.Inc(stats.Observation{Region: pubg.RegionNorthAmerica, GameMode: "squad"})
	agg.Inc(stats.Observation{Region: pubg.RegionEurope, GameMode: "solo"})

	var buf bytes.Buffer
	line := NewLine(&buf)
	line.Render(agg.Breakdown(), agg.Total())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\r\x1b[2K"))
	assert.NotContains(t, out, "\n")
	assert.Contains(t, out, "North America (67%) fpp: 50% tpp: 50% solo tpp: n/a solo fpp: n/a")
	assert.Contains(t, out, "squad tpp: 50% squad fpp: 50%")
	assert.Contains(t, out, "Europe (33%) fpp: 0% tpp: 100% solo tpp: 100%")
	assert.Contains(t, out, " | 3 matches processed")
	assert.NotContains(t, out, "Asia")
}

func TestRender_HumanizedTotal(t *testing.T) {
	var buf bytes.Buffer
	NewLine(&buf).Render(nil, 12345)
	assert.Contains(t, buf.String(), "12,345 matches processed")
}

func TestWaiting(t *testing.T) {
	var buf bytes.Buffer
	line := NewLine(&buf)

	line.Waiting(10 * time.Second)
	assert.Contains(t, buf.String(), "Waiting for 10s")

	buf.Reset()
	line.Render(nil, 2)
	line.Waiting(2500 * time.Millisecond)
	assert.Contains(t, buf.String(), "2 matches processed | Waiting for 2s")
}
