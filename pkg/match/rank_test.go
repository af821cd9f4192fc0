package match

import (
	"testing"

	"SongVault-Go/pkg/music"
)

// TestRankOrdersByRelevance verifies the closest title match ranks first.
func TestRankOrdersByRelevance(t *testing.T) {
	q := music.Query{Title: "Bohemian Rhapsody", Artist: "Queen"}
	groups := Grouper{}.Group([]music.RawCandidate{
		rc("spotify", "s1", "Bohemian Rhapsody", "Queen", ""),
		rc("spotify", "s2", "Bohemian Rhapsody Live Budapest", "Queen", ""),
	})
	ranked := Ranker{}.Rank(q, groups)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(ranked))
	}
	if got, _ := ranked[0].Member("spotify:s1"); got.ExternalID != "s1" {
		t.Fatalf("expected exact match to rank first, got %+v", ranked[0])
	}
	if ranked[0].RelevanceScore <= ranked[1].RelevanceScore {
		t.Errorf("scores not descending: %f vs %f", ranked[0].RelevanceScore, ranked[1].RelevanceScore)
	}
}

// TestRankAlbumBonus checks the fixed bonus applies only when the query
// supplied an album and a member matches it.
func TestRankAlbumBonus(t *testing.T) {
	groups := Grouper{}.Group([]music.RawCandidate{
		rc("spotify", "s1", "Bohemian Rhapsody", "Queen", "A Night at the Opera"),
		rc("tidal", "t1", "Bohemian Rhapsody", "Queen", "Greatest Hits"),
	})
	q := music.Query{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera"}
	ranked := Ranker{}.Rank(q, groups)
	if ranked[0].Album != "A Night at the Opera" {
		t.Fatalf("expected album match to rank first, got %+v", ranked[0])
	}
	if diff := ranked[0].RelevanceScore - ranked[1].RelevanceScore; diff < DefaultAlbumBonus-0.01 {
		t.Errorf("album bonus not applied, score gap %f", diff)
	}
}

// TestRankCorroborationTieBreak verifies a group backed by more providers
// wins a score tie.
func TestRankCorroborationTieBreak(t *testing.T) {
	q := music.Query{Title: "Bohemian Rhapsody", Artist: "Queen"}
	// Two groups with identical metadata (different albums keep them apart)
	// score the same; the two-provider group must rank first.
	groups := Grouper{}.Group([]music.RawCandidate{
		rc("spotify", "s1", "Bohemian Rhapsody", "Queen", "A Night at the Opera"),
		rc("youtube", "y1", "Bohemian Rhapsody", "Queen", "A Night at the Opera"),
		rc("tidal", "t1", "Bohemian Rhapsody", "Queen", "Greatest Hits"),
	})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	ranked := Ranker{}.Rank(q, groups)
	if ranked[0].ProviderCount() != 2 {
		t.Fatalf("expected corroborated group first, got %+v", ranked[0])
	}
}

// TestRankProviderTrust checks the trust weight of the best member's provider
// is added to the group score.
func TestRankProviderTrust(t *testing.T) {
	q := music.Query{Title: "Bohemian Rhapsody", Artist: "Queen"}
	groups := Grouper{}.Group([]music.RawCandidate{
		rc("spotify", "s1", "Bohemian Rhapsody", "Queen", "A Night at the Opera"),
		rc("youtube", "y1", "Bohemian Rhapsody", "Queen", "Greatest Hits"),
	})
	r := Ranker{Config: RankConfig{
		TitleWeight:   DefaultTitleWeight,
		ArtistWeight:  DefaultArtistWeight,
		AlbumBonus:    DefaultAlbumBonus,
		ProviderTrust: map[string]float64{"youtube": 0.2},
	}}
	ranked := r.Rank(q, groups)
	if ranked[0].GroupID != "youtube:y1" {
		t.Fatalf("expected trusted provider's group first, got %s", ranked[0].GroupID)
	}
}

// TestRankDeterministic asserts ranking the same set twice produces the same
// sequence, including the group ID tie-break.
func TestRankDeterministic(t *testing.T) {
	q := music.Query{Title: "Bohemian Rhapsody", Artist: "Queen"}
	cands := []music.RawCandidate{
		rc("spotify", "s1", "Bohemian Rhapsody", "Queen", "A Night at the Opera"),
		rc("tidal", "t1", "Bohemian Rhapsody", "Queen", "Greatest Hits"),
		rc("youtube", "y1", "Bohemian Rhapsody", "Queen", "Live Aid"),
	}
	first := Ranker{}.Rank(q, Grouper{}.Group(cands))
	second := Ranker{}.Rank(q, Grouper{}.Group(cands))
	if len(first) != len(second) {
		t.Fatal("rank lengths differ")
	}
	for i := range first {
		if first[i].GroupID != second[i].GroupID {
			t.Fatalf("position %d differs: %s vs %s", i, first[i].GroupID, second[i].GroupID)
		}
	}
}
