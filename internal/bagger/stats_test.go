package bagger_test

import (
	"testing"

	"bagger/internal/bagger"
	"bagger/internal/model"
)

func TestComputeStats(t *testing.T) {
	snap := model.CacheSnapshot{
		Platforms: []model.Platform{{ID: 1}, {ID: 2}},
		Topics:    []model.Topic{{ID: 3}},
		Cheats: []model.Cheat{
			{ID: 10, IsPublic: true, PlatformIDs: []int64{1, 1}, TopicIDs: []int64{3}},
			{ID: 11, PlatformIDs: []int64{1, 2}},
		},
		UserCheats: []model.UserCheat{
			{CheatID: 10, IsFavorite: true},
			{CheatID: 11, IsFavorite: false},
		},
	}

	got := bagger.ComputeStats(snap)
	want := bagger.Stats{Cheats: 2, Platforms: 2, Topics: 1, Favorites: 1, Public: 1}
	if got != want {
		t.Errorf("ComputeStats() = %+v, want %+v", got, want)
	}

	usage := bagger.PlatformUsage(snap.Cheats)
	if usage[1] != 2 || usage[2] != 1 {
		t.Errorf("PlatformUsage() = %v", usage)
	}
	if topics := bagger.TopicUsage(snap.Cheats); topics[3] != 1 || len(topics) != 1 {
		t.Errorf("TopicUsage() = %v", topics)
	}
}
