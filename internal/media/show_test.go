package media

import "testing"

func TestApplyGUIDs(t *testing.T) {
	var show Show
	show.ApplyGUIDs([]string{"imdb://tt0903747", "tmdb://1396", "tvdb://81189?lang=en", "local://12", "tmdb://bogus"})

	if show.IMDbID != "tt0903747" {
		t.Fatalf("unexpected imdb id %q", show.IMDbID)
	}
	if show.TMDBID != 1396 {
		t.Fatalf("unexpected tmdb id %d", show.TMDBID)
	}
	if show.TVDBID != 81189 {
		t.Fatalf("unexpected tvdb id %d", show.TVDBID)
	}
}

func TestApplyGUIDsKeepsExisting(t *testing.T) {
	show := Show{TMDBID: 7}
	show.ApplyGUIDs([]string{"themoviedb://99"})
	if show.TMDBID != 7 {
		t.Fatalf("expected existing id kept, got %d", show.TMDBID)
	}
}

func TestLabelAndLink(t *testing.T) {
	show := Show{Title: "Breaking Bad", Year: 2008, IMDbID: "tt0903747"}
	if show.Label() != "Breaking Bad (2008)" {
		t.Fatalf("unexpected label %q", show.Label())
	}
	if show.IMDbLink() != "https://www.imdb.com/title/tt0903747/" {
		t.Fatalf("unexpected link %q", show.IMDbLink())
	}
	if (Show{Title: "X"}).Label() != "X" || (Show{}).IMDbLink() != "" {
		t.Fatal("unexpected zero value rendering")
	}
}
