// This file clusters raw candidates from different providers into candidate
// groups, each group representing one logical song with every contributing
// provider link kept as a selectable member.
package match

import (
	"sort"

	"SongVault-Go/pkg/music"
)

// DefaultThreshold is the pairwise similarity above which two candidates are
// considered the same song. Tunable through Grouper.Threshold.
const DefaultThreshold = 0.85

// CandidateGroup is a deduplicated cluster of candidates believed to be the
// same song. Members are ordered by (providerID, externalID); the group's
// display fields come from its first member. Groups exist only inside a
// resolution session and are immutable once ranked.
type CandidateGroup struct {
	GroupID        string               `json:"group_id"`
	Title          string               `json:"title"`
	Artist         string               `json:"artist"`
	Album          string               `json:"album,omitempty"`
	Members        []music.RawCandidate `json:"members"`
	RelevanceScore float64              `json:"relevance_score"`
}

// Member returns the member with the given key, if present.
func (g CandidateGroup) Member(key string) (music.RawCandidate, bool) {
	for _, m := range g.Members {
		if m.Key() == key {
			return m, true
		}
	}
	return music.RawCandidate{}, false
}

// ProviderCount returns how many distinct providers contributed members,
// used by the ranking tie-break as a corroboration signal.
func (g CandidateGroup) ProviderCount() int {
	seen := make(map[string]struct{}, len(g.Members))
	for _, m := range g.Members {
		seen[m.ProviderID] = struct{}{}
	}
	return len(seen)
}

// Grouper merges near-duplicate candidates into groups. The zero value uses
// DefaultThreshold.
type Grouper struct {
	Threshold float64
}

// Group clusters the pooled candidates. Candidates are sorted by
// (providerID, externalID) first so the outcome does not depend on the order
// providers happened to respond in. Clustering is greedy single-linkage: a
// candidate joins the first group containing a member it matches, where a
// match requires the pairwise similarity to exceed the threshold and the
// albums to be compatible.
func (g Grouper) Group(candidates []music.RawCandidate) []CandidateGroup {
	threshold := g.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	sorted := make([]music.RawCandidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key() < sorted[j].Key() })

	type normalized struct {
		title, artist, album string
	}
	norms := make([]normalized, len(sorted))
	for i, c := range sorted {
		norms[i] = normalized{Normalize(c.Title), Normalize(c.Artist), Normalize(c.Album)}
	}

	var groups []CandidateGroup
	var groupNorms [][]normalized
next:
	for i, c := range sorted {
		for gi := range groups {
			for _, n := range groupNorms[gi] {
				if pairSimilarity(norms[i].title, norms[i].artist, n.title, n.artist) > threshold &&
					albumsCompatible(norms[i].album, n.album) {
					groups[gi].Members = append(groups[gi].Members, c)
					groupNorms[gi] = append(groupNorms[gi], norms[i])
					continue next
				}
			}
		}
		groups = append(groups, CandidateGroup{
			// The first member is the smallest key in the cluster because the
			// input is sorted, so the group ID is reproducible.
			GroupID: c.Key(),
			Title:   c.Title,
			Artist:  c.Artist,
			Album:   c.Album,
			Members: []music.RawCandidate{c},
		})
		groupNorms = append(groupNorms, []normalized{norms[i]})
	}
	return groups
}
