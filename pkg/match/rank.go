// This file orders candidate groups by relevance to the original query. The
// composite score and its tie-breaks are fully deterministic so an identical
// candidate set always yields an identical ranking.
package match

import (
	"sort"

	"SongVault-Go/pkg/music"
)

// Default ranking weights. Title similarity dominates, artist similarity
// corroborates, and a fixed bonus rewards an album match when the query
// supplied one. Values are defaults, overridable through configuration.
const (
	DefaultTitleWeight  = 0.5
	DefaultArtistWeight = 0.3
	DefaultAlbumBonus   = 0.1
)

// RankConfig holds the ranking weights and the per-provider trust applied to
// a group's best-scoring member. Providers absent from ProviderTrust
// contribute no trust bonus.
type RankConfig struct {
	TitleWeight   float64
	ArtistWeight  float64
	AlbumBonus    float64
	ProviderTrust map[string]float64
}

// DefaultRankConfig returns the ranking defaults with no provider trust.
func DefaultRankConfig() RankConfig {
	return RankConfig{
		TitleWeight:  DefaultTitleWeight,
		ArtistWeight: DefaultArtistWeight,
		AlbumBonus:   DefaultAlbumBonus,
	}
}

// Ranker scores and orders candidate groups. The zero value ranks with
// DefaultRankConfig.
type Ranker struct {
	Config RankConfig
}

// memberScore rates how well a single member matches the query.
func (r Ranker) memberScore(q music.Query, m music.RawCandidate, cfg RankConfig) float64 {
	score := cfg.TitleWeight*Similarity(Normalize(q.Title), Normalize(m.Title)) +
		cfg.ArtistWeight*Similarity(Normalize(q.Artist), Normalize(m.Artist))
	if q.Album != "" && Normalize(q.Album) == Normalize(m.Album) {
		score += cfg.AlbumBonus
	}
	return score
}

// Rank assigns each group its relevance score and returns the groups in
// descending order. The score is the best member's match against the query
// plus that member's provider trust. Ties are broken by the number of
// distinct contributing providers (more corroboration ranks higher), then by
// ascending group ID for full determinism.
func (r Ranker) Rank(q music.Query, groups []CandidateGroup) []CandidateGroup {
	cfg := r.Config
	if cfg.TitleWeight == 0 && cfg.ArtistWeight == 0 && cfg.AlbumBonus == 0 {
		trust := cfg.ProviderTrust
		cfg = DefaultRankConfig()
		cfg.ProviderTrust = trust
	}

	ranked := make([]CandidateGroup, len(groups))
	copy(ranked, groups)
	for i := range ranked {
		best := 0.0
		bestProvider := ""
		for _, m := range ranked[i].Members {
			if s := r.memberScore(q, m, cfg); s > best || bestProvider == "" {
				best = s
				bestProvider = m.ProviderID
			}
		}
		ranked[i].RelevanceScore = best + cfg.ProviderTrust[bestProvider]
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		ac, bc := a.ProviderCount(), b.ProviderCount()
		if ac != bc {
			return ac > bc
		}
		return a.GroupID < b.GroupID
	})
	return ranked
}
