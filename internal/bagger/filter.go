package bagger

import (
	"strings"

	"bagger/internal/model"
)

// Page sizes for the list views.
const (
	CheatPageSize    = 10
	PlatformPageSize = 12
	TopicPageSize    = 12
)

// PlatformTypeAll matches every platform type.
const PlatformTypeAll = "all"

// NormalizeTypeFilter maps s to one of the four platform types, or "all".
func NormalizeTypeFilter(s string) string {
	t := model.PlatformType(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return string(t)
	}
	return PlatformTypeAll
}

// CheatFilter selects cheats by text and tags. Text is matched
// case-insensitively against title, code and notes. Within a tag dimension
// any selected id matches; across dimensions all must match.
type CheatFilter struct {
	Query       string
	PlatformIDs []int64
	TopicIDs    []int64
}

// Match reports whether c passes the filter.
func (f CheatFilter) Match(c model.Cheat) bool {
	if q := normalizeQuery(f.Query); q != "" {
		if !strings.Contains(haystack(c.Title, c.Code, c.Notes), q) {
			return false
		}
	}
	if len(f.PlatformIDs) > 0 && !anyIn(c.PlatformIDs, f.PlatformIDs) {
		return false
	}
	if len(f.TopicIDs) > 0 && !anyIn(c.TopicIDs, f.TopicIDs) {
		return false
	}
	return true
}

// FilterCheats returns the cheats matching f, in input order.
func FilterCheats(cheats []model.Cheat, f CheatFilter) []model.Cheat {
	return filter(cheats, f.Match)
}

// FilterPlatforms matches query against name, slug and type, and keeps only
// platforms of typeFilter unless it is "all".
func FilterPlatforms(platforms []model.Platform, query, typeFilter string) []model.Platform {
	q := normalizeQuery(query)
	want := NormalizeTypeFilter(typeFilter)
	return filter(platforms, func(p model.Platform) bool {
		if want != PlatformTypeAll && NormalizeTypeFilter(string(p.Type)) != want {
			return false
		}
		return q == "" || strings.Contains(haystack(p.Name, p.Slug, string(p.Type)), q)
	})
}

// FilterTopics matches query against name and slug.
func FilterTopics(topics []model.Topic, query string) []model.Topic {
	q := normalizeQuery(query)
	return filter(topics, func(t model.Topic) bool {
		return q == "" || strings.Contains(haystack(t.Name, t.Slug), q)
	})
}

// Page is one page of a filtered list.
type Page[T any] struct {
	Items      []T
	Number     int
	TotalPages int
	Total      int
}

// TotalPages is the number of pages for n items, never less than one.
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage keeps page within [1, total].
func ClampPage(page, total int) int {
	if total < 1 {
		total = 1
	}
	return max(1, min(page, total))
}

// Paginate returns page number (clamped) of items.
func Paginate[T any](items []T, page, size int) Page[T] {
	total := TotalPages(len(items), size)
	page = ClampPage(page, total)
	start := (page - 1) * size
	end := min(start+size, len(items))
	var out []T
	if start < end {
		out = items[start:end]
	}
	return Page[T]{Items: out, Number: page, TotalPages: total, Total: len(items)}
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// haystack joins fields with newlines so a query never matches across two fields.
func haystack(fields ...string) string {
	return strings.ToLower(strings.Join(fields, "\n"))
}

func anyIn(ids, selected []int64) bool {
	for _, id := range ids {
		for _, s := range selected {
			if id == s {
				return true
			}
		}
	}
	return false
}
