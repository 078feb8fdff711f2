package bagger

import (
	"slices"

	"bagger/internal/model"
)

// CheatListView is the control state of the cheats list: query, tag
// selections and current page. Any filter change returns to page one.
type CheatListView struct {
	filter CheatFilter
	page   int
}

func NewCheatListView() *CheatListView {
	return &CheatListView{page: 1}
}

func (v *CheatListView) SetQuery(q string) {
	v.filter.Query = q
	v.page = 1
}

// TogglePlatform adds id to the platform selection, or removes it if present.
func (v *CheatListView) TogglePlatform(id int64) {
	v.filter.PlatformIDs = toggle(v.filter.PlatformIDs, id)
	v.page = 1
}

// ToggleTopic adds id to the topic selection, or removes it if present.
func (v *CheatListView) ToggleTopic(id int64) {
	v.filter.TopicIDs = toggle(v.filter.TopicIDs, id)
	v.page = 1
}

func (v *CheatListView) SetPlatforms(ids []int64) {
	v.filter.PlatformIDs = UniqueIDs(ids)
	v.page = 1
}

func (v *CheatListView) SetTopics(ids []int64) {
	v.filter.TopicIDs = UniqueIDs(ids)
	v.page = 1
}

// Clear drops every filter.
func (v *CheatListView) Clear() {
	v.filter = CheatFilter{}
	v.page = 1
}

func (v *CheatListView) Filter() CheatFilter { return v.filter }

func (v *CheatListView) SetPage(page int) { v.page = max(1, page) }

// Next advances one page; Render clamps it to the last page.
func (v *CheatListView) Next() { v.page++ }

// Prev goes back one page, stopping at one.
func (v *CheatListView) Prev() { v.page = max(1, v.page-1) }

// Render applies the filter to cheats and returns the current page.
// The stored page is clamped to the result.
func (v *CheatListView) Render(cheats []model.Cheat) Page[model.Cheat] {
	p := Paginate(FilterCheats(cheats, v.filter), v.page, CheatPageSize)
	v.page = p.Number
	return p
}

// PlatformListView is the control state of the platforms list.
type PlatformListView struct {
	query    string
	typeName string
	page     int
}

func NewPlatformListView() *PlatformListView {
	return &PlatformListView{typeName: PlatformTypeAll, page: 1}
}

func (v *PlatformListView) SetQuery(q string) {
	v.query = q
	v.page = 1
}

// SetType restricts the list to one platform type; unknown values mean "all".
func (v *PlatformListView) SetType(t string) {
	v.typeName = NormalizeTypeFilter(t)
	v.page = 1
}

func (v *PlatformListView) Type() string { return v.typeName }

func (v *PlatformListView) Clear() {
	v.query = ""
	v.typeName = PlatformTypeAll
	v.page = 1
}

func (v *PlatformListView) SetPage(page int) { v.page = max(1, page) }
func (v *PlatformListView) Next()            { v.page++ }
func (v *PlatformListView) Prev()            { v.page = max(1, v.page-1) }

func (v *PlatformListView) Render(platforms []model.Platform) Page[model.Platform] {
	p := Paginate(FilterPlatforms(platforms, v.query, v.typeName), v.page, PlatformPageSize)
	v.page = p.Number
	return p
}

// TopicListView is the control state of the topics list.
type TopicListView struct {
	query string
	page  int
}

func NewTopicListView() *TopicListView {
	return &TopicListView{page: 1}
}

func (v *TopicListView) SetQuery(q string) {
	v.query = q
	v.page = 1
}

func (v *TopicListView) Clear() {
	v.query = ""
	v.page = 1
}

func (v *TopicListView) SetPage(page int) { v.page = max(1, page) }
func (v *TopicListView) Next()            { v.page++ }
func (v *TopicListView) Prev()            { v.page = max(1, v.page-1) }

func (v *TopicListView) Render(topics []model.Topic) Page[model.Topic] {
	p := Paginate(FilterTopics(topics, v.query), v.page, TopicPageSize)
	v.page = p.Number
	return p
}

func toggle(ids []int64, id int64) []int64 {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(slices.Clone(ids), i, i+1)
	}
	return append(slices.Clone(ids), id)
}
