package store

import (
	"fmt"
	"reflect"
	"testing"
)

func TestRecentTracks_Basic(t *testing.T) {
	store := NewRecentTracks(100, DefaultFalsePositiveRate)

	if store.Seen("spotify:track:1") {
		t.Error("Empty store should not have any tracks")
	}
	if store.Size() != 0 {
		t.Errorf("Empty store size should be 0, got %d", store.Size())
	}

	store.Add("spotify:track:1")
	if !store.Seen("spotify:track:1") {
		t.Error("Store should have track 1 after adding")
	}

	// Test duplicate addition
	store.Add("spotify:track:1")
	if store.Size() != 1 {
		t.Errorf("Store size should still be 1 after adding duplicate, got %d", store.Size())
	}

	store.Add("spotify:track:2", "", "spotify:track:3")
	if store.Size() != 3 {
		t.Errorf("Store size should be 3 after adding three tracks, got %d", store.Size())
	}
}

func TestRecentTracks_Load(t *testing.T) {
	store := NewRecentTracks(100, DefaultFalsePositiveRate)

	tracks := []string{"track1", "", "track2", "track3"}
	store.Load(tracks)

	if store.Size() != 3 {
		t.Errorf("Store size should be 3 after loading (ignoring empty strings), got %d", store.Size())
	}

	store.Load([]string{"track4", "track5"})
	if store.Size() != 2 {
		t.Errorf("Store size should be 2 after reloading, got %d", store.Size())
	}
	for _, track := range tracks[:2] {
		if track != "" && store.Seen(track) {
			t.Errorf("Store should not have old track %s after reload", track)
		}
	}
}

func TestRecentTracks_Clear(t *testing.T) {
	store := NewRecentTracks(100, DefaultFalsePositiveRate)
	store.Add("track1", "track2")

	store.Clear()

	if store.Size() != 0 {
		t.Errorf("Store size should be 0 after clear, got %d", store.Size())
	}
	if store.Seen("track1") {
		t.Error("Store should not have track1 after clear")
	}
}

func TestRecentTracks_MaxCapacity(t *testing.T) {
	maxTracks := 5
	store := NewRecentTracks(maxTracks, DefaultFalsePositiveRate)

	for i := 0; i < maxTracks+3; i++ {
		store.Add(fmt.Sprintf("track%d", i))
	}

	if store.Size() != maxTracks {
		t.Errorf("Store size should be %d, got %d", maxTracks, store.Size())
	}
	for _, track := range []string{"track0", "track1", "track2"} {
		if store.Seen(track) {
			t.Errorf("Oldest track %s should have been evicted", track)
		}
	}
	for _, track := range []string{"track5", "track6", "track7"} {
		if !store.Seen(track) {
			t.Errorf("Store should have recent track %s", track)
		}
	}
}

func TestRecentTracks_RecentOrder(t *testing.T) {
	store := NewRecentTracks(3, DefaultFalsePositiveRate)
	store.Add("a", "b", "c")
	// replaying a track makes it the newest
	store.Add("a")
	store.Add("d")

	expected := []string{"c", "a", "d"}
	if got := store.Recent(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Recent() = %v, want %v", got, expected)
	}
}

func TestRecentTracks_Fresh(t *testing.T) {
	store := NewRecentTracks(10, DefaultFalsePositiveRate)
	store.Add("b", "d")

	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nothing seen", []string{"x", "y"}, []string{"x", "y"}},
		{"seen tracks move last", []string{"a", "b", "c", "d", "e"}, []string{"a", "c", "e", "b", "d"}},
		{"all seen", []string{"d", "b"}, []string{"d", "b"}},
		{"empty", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.Fresh(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Fresh(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRecentTracks_BloomFilterEffectiveness(t *testing.T) {
	store := NewRecentTracks(1000, DefaultFalsePositiveRate)

	numTracks := 500
	for i := 0; i < numTracks; i++ {
		store.Add(fmt.Sprintf("track_%d", i))
	}

	for i := 0; i < numTracks; i++ {
		trackID := fmt.Sprintf("track_%d", i)
		if !store.Seen(trackID) {
			t.Errorf("Store should have track %s", trackID)
		}
	}

	// the LRU backs every bloom hit, so misses are exact
	for i := 0; i < 1000; i++ {
		if store.Seen(fmt.Sprintf("nonexistent_%d", i)) {
			t.Fatalf("Store reported unseen track nonexistent_%d", i)
		}
	}
}

func BenchmarkRecentTracks_Add(b *testing.B) {
	store := NewRecentTracks(10000, DefaultFalsePositiveRate)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Add(fmt.Sprintf("track_%d", i))
	}
}

func BenchmarkRecentTracks_Seen(b *testing.B) {
	store := NewRecentTracks(10000, DefaultFalsePositiveRate)
	for i := 0; i < 1000; i++ {
		store.Add(fmt.Sprintf("track_%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Seen(fmt.Sprintf("track_%d", i%1000))
	}
}
