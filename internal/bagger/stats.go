package bagger

import "bagger/internal/model"

// Stats summarizes a library for the dashboard.
type Stats struct {
	Cheats    int
	Platforms int
	Topics    int
	Favorites int
	Public    int
}

// ComputeStats counts the collections in snap. Favorites counts user cheat
// rows marked is_favorite.
func ComputeStats(snap model.CacheSnapshot) Stats {
	s := Stats{
		Cheats:    len(snap.Cheats),
		Platforms: len(snap.Platforms),
		Topics:    len(snap.Topics),
	}
	for _, uc := range snap.UserCheats {
		if uc.IsFavorite {
			s.Favorites++
		}
	}
	for _, c := range snap.Cheats {
		if c.IsPublic {
			s.Public++
		}
	}
	return s
}

// PlatformUsage counts how many cheats reference each platform id.
func PlatformUsage(cheats []model.Cheat) map[int64]int {
	m := make(map[int64]int)
	for _, c := range cheats {
		for _, id := range UniqueIDs(c.PlatformIDs) {
			m[id]++
		}
	}
	return m
}

// TopicUsage counts how many cheats reference each topic id.
func TopicUsage(cheats []model.Cheat) map[int64]int {
	m := make(map[int64]int)
	for _, c := range cheats {
		for _, id := range UniqueIDs(c.TopicIDs) {
			m[id]++
		}
	}
	return m
}
