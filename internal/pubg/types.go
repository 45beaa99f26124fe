package pubg

import (
	json "github.com/goccy/go-json"
)

// MatchReference is a single entry of the samples relationship list
type MatchReference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// SampleResponse represents the response from /shards/{shard}/samples
type SampleResponse struct {
	Data struct {
		Type          string `json:"type"`
		ID            string `json:"id"`
		Relationships struct {
			Matches struct {
				Data []MatchReference `json:"data"`
			} `json:"matches"`
		} `json:"relationships"`
	} `json:"data"`

	// RateLimit is filled from the response headers, not the body
	RateLimit RateLimit `json:"-"`
}

// MatchIDs returns the referenced match ids in response order
func (s *SampleResponse) MatchIDs() []string {
	refs := s.Data.Relationships.Matches.Data
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.ID != "" {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}

// RateLimit carries the x-ratelimit-* signals of a response. A nil field
// means the header was missing or unparsable.
type RateLimit struct {
	Remaining *int
	Reset     *int64 // epoch seconds
}

// MatchDetail represents the response from /shards/{shard}/matches/{id}
type MatchDetail struct {
	Data     MatchData      `json:"data"`
	Included []IncludedItem `json:"included"`
}

type MatchData struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}

// MatchAttributes is the subset of match attributes the sampler reads.
// Everything else is kept verbatim in MatchData.Attributes.
type MatchAttributes struct {
	GameMode      string `json:"gameMode"`
	IsCustomMatch bool   `json:"isCustomMatch"`
	MapName       string `json:"mapName"`
	ShardID       string `json:"shardId"`
	CreatedAt     string `json:"createdAt"`
	Duration      int    `json:"duration"`
}

type IncludedItem struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		Name string `json:"name"`
		URL  string `json:"URL"`
	} `json:"attributes"`
}

// Attributes decodes the typed subset of the match attributes
func (m *MatchDetail) Attributes() (MatchAttributes, error) {
	var attrs MatchAttributes
	if len(m.Data.Attributes) == 0 {
		return attrs, ErrMalformed
	}
	if err := json.Unmarshal(m.Data.Attributes, &attrs); err != nil {
		return attrs, err
	}
	return attrs, nil
}

// TelemetryURL returns the URL of the telemetry asset, if the match has one
func (m *MatchDetail) TelemetryURL() (string, bool) {
	for _, inc := range m.Included {
		if inc.Type != "asset" || inc.Attributes.URL == "" {
			continue
		}
		// Older payloads omit the name; treat any asset as telemetry then
		if inc.Attributes.Name != "" && inc.Attributes.Name != "telemetry" {
			continue
		}
		return inc.Attributes.URL, true
	}
	return "", false
}

// TelemetryEvent is the only part of a telemetry event the resolver needs
type TelemetryEvent struct {
	MatchID string `json:"MatchId"`
	Type    string `json:"_T"`
}
