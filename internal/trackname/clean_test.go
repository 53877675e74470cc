package trackname

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Song Title - YouTube Music", "Song Title"},
		{"Song Title (Official Music Video)", "Song Title"},
		{"Song Title (feat. Artist)", "Song Title"},
		{"Get Lucky ft. Pharrell Williams", "Get Lucky"},
		{"Daft Punk - Get Lucky (Official Audio)", "Get Lucky"},
		{"Artist feat. Other - Track Name (Lyric Video)", "Track Name"},
		{"Anne-Marie - 2002", "2002"},
		{"Song.mp4", "Song"},
		{"Hello [HD]", "Hello"},
		{"Title | Album | Artist", "Title"},
		{"Lemon / 米津玄師", "Lemon"},
		{"【MV】春に揺られど君想う【Official】", "春に揺られど君想う"},
		{"アーティスト「タイトル」/Album", "タイトル"},
		{"ロクデナシ「About You」/ Rokudenashi - About You【Official Music Video】", "About You"},
		{"私じゃなかったんだね。 - Watashijyanakattandane.", "私じゃなかったんだね。"},
		{"【MV】私じゃなかったんだね。(Official Video) - YouTube Music", "私じゃなかったんだね。"},
		{"Plain Title", "Plain Title"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanNeverEmpty(t *testing.T) {
	for _, in := range []string{"a", "(Official Video)", "【MV】", "   ", "-", "x.mp4"} {
		if got := Clean(in); got == "" {
			t.Errorf("Clean(%q) returned empty string", in)
		}
	}
	if got := Clean(""); got != "" {
		t.Errorf("Clean(\"\") = %q, want empty", got)
	}
}

func TestRemoveArtist(t *testing.T) {
	tests := []struct {
		title, artist, want string
	}{
		{"Daft Punk - Get Lucky", "Daft Punk", "Get Lucky"},
		{"Get Lucky - daft punk", "Daft Punk", "Get Lucky"},
		{"Get Lucky", "", "Get Lucky"},
		{"Daft Punk", "Daft Punk", "Daft Punk"},
		{"AC/DC – Thunderstruck", "AC/DC", "Thunderstruck"},
		{"Get Lucky", "Daft Punk", "Get Lucky"},
	}
	for _, tt := range tests {
		if got := RemoveArtist(tt.title, tt.artist); got != tt.want {
			t.Errorf("RemoveArtist(%q, %q) = %q, want %q", tt.title, tt.artist, got, tt.want)
		}
	}
}

func TestCleaned(t *testing.T) {
	v, ok := Cleaned("Daft Punk - Get Lucky (Official Audio)", "Daft Punk")
	if !ok || v.Title != "Get Lucky" || v.Artist != "Daft Punk" {
		t.Errorf("Cleaned = %+v, %v", v, ok)
	}
	if _, ok := Cleaned("Get Lucky", "Daft Punk"); ok {
		t.Error("Cleaned should report no change for a clean title")
	}
}
