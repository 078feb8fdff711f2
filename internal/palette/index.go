// Package palette implements the keyboard-driven command palette: a flat,
// searchable index of actions and library items with a single selection.
package palette

import (
	"fmt"
	"strings"

	"bagger/internal/model"
)

// Kind groups palette entries.
type Kind int

const (
	KindAction Kind = iota
	KindCheat
	KindTopic
	KindPlatform
)

func (k Kind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindCheat:
		return "cheat"
	case KindTopic:
		return "topic"
	case KindPlatform:
		return "platform"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Entry is one selectable palette row. Run may be nil.
type Entry struct {
	ID       string
	Kind     Kind
	Title    string
	Subtitle string
	Keywords string
	Run      func()
}

// text is the lowercase search text of the entry.
func (e Entry) text() string {
	return strings.ToLower(strings.TrimSpace(e.Title + " " + e.Subtitle + " " + e.Keywords))
}

// Actions are the callbacks the index entries invoke. Static actions with a
// nil callback are left out of the index; nil Open callbacks leave the item
// entries inert.
type Actions struct {
	GoToCheats    func()
	GoToTopics    func()
	GoToPlatforms func()
	NewCheat      func()
	Sync          func()
	ClearFilters  func()

	OpenCheat    func(model.Cheat)
	OpenTopic    func(model.Topic)
	OpenPlatform func(model.Platform)
}

// BuildIndex lists the available static actions followed by one entry per
// cheat, topic and platform in snap.
func BuildIndex(snap model.CacheSnapshot, actions Actions) []Entry {
	static := []Entry{
		{ID: "action:cheats", Kind: KindAction, Title: "Go to cheats", Subtitle: "Navigate", Run: actions.GoToCheats},
		{ID: "action:topics", Kind: KindAction, Title: "Go to topics", Subtitle: "Navigate", Run: actions.GoToTopics},
		{ID: "action:platforms", Kind: KindAction, Title: "Go to platforms", Subtitle: "Navigate", Run: actions.GoToPlatforms},
		{ID: "action:new-cheat", Kind: KindAction, Title: "New cheat", Subtitle: "Create", Keywords: "add create", Run: actions.NewCheat},
		{ID: "action:sync", Kind: KindAction, Title: "Sync library", Subtitle: "Refresh from server", Keywords: "refresh reload", Run: actions.Sync},
		{ID: "action:clear", Kind: KindAction, Title: "Clear filters", Subtitle: "Reset search and tags", Keywords: "reset", Run: actions.ClearFilters},
	}
	var entries []Entry
	for _, e := range static {
		if e.Run != nil {
			entries = append(entries, e)
		}
	}

	platformNames := make(map[int64]string, len(snap.Platforms))
	for _, p := range snap.Platforms {
		platformNames[p.ID] = p.Name
	}
	topicNames := make(map[int64]string, len(snap.Topics))
	for _, t := range snap.Topics {
		topicNames[t.ID] = t.Name
	}

	for _, c := range snap.Cheats {
		var platforms, keywords []string
		for _, id := range c.PlatformIDs {
			if name, ok := platformNames[id]; ok {
				platforms = append(platforms, name)
			}
		}
		for _, id := range c.TopicIDs {
			if name, ok := topicNames[id]; ok {
				keywords = append(keywords, name)
			}
		}
		keywords = append(keywords, c.Code, c.Notes)

		entries = append(entries, Entry{
			ID:       fmt.Sprintf("cheat:%d", c.ID),
			Kind:     KindCheat,
			Title:    c.Title,
			Subtitle: strings.Join(platforms, ", "),
			Keywords: strings.Join(keywords, " "),
			Run:      bind(actions.OpenCheat, c),
		})
	}

	for _, t := range snap.Topics {
		entries = append(entries, Entry{
			ID:       fmt.Sprintf("topic:%d", t.ID),
			Kind:     KindTopic,
			Title:    t.Name,
			Subtitle: "Topic",
			Keywords: t.Slug,
			Run:      bind(actions.OpenTopic, t),
		})
	}

	for _, p := range snap.Platforms {
		entries = append(entries, Entry{
			ID:       fmt.Sprintf("platform:%d", p.ID),
			Kind:     KindPlatform,
			Title:    p.Name,
			Subtitle: "Platform · " + string(p.Type),
			Keywords: p.Slug,
			Run:      bind(actions.OpenPlatform, p),
		})
	}

	return entries
}

func bind[T any](fn func(T), v T) func() {
	if fn == nil {
		return nil
	}
	return func() { fn(v) }
}
