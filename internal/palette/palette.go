package palette

import "strings"

// MaxResults is the number of matches shown at once.
const MaxResults = 40

// Palette is the selection state of the command palette. It never touches
// the library; selecting an entry only runs the entry's callback.
type Palette struct {
	entries  []Entry
	query    string
	results  []Entry
	selected int
	open     bool
}

// New creates an open Palette over entries.
func New(entries []Entry) *Palette {
	p := &Palette{entries: entries, open: true}
	p.refilter()
	return p
}

// SetQuery replaces the query and moves the selection back to the top.
func (p *Palette) SetQuery(q string) {
	p.query = q
	p.selected = 0
	p.refilter()
}

func (p *Palette) Query() string { return p.query }

// Results returns the visible matches, at most MaxResults.
func (p *Palette) Results() []Entry { return p.results }

// Matches returns the number of matching entries, including hidden ones.
func (p *Palette) Matches() int {
	return countMatches(p.entries, normalize(p.query))
}

// Total returns the size of the index.
func (p *Palette) Total() int { return len(p.entries) }

// Selected returns the highlighted entry, if any.
func (p *Palette) Selected() (Entry, bool) {
	if p.selected < 0 || p.selected >= len(p.results) {
		return Entry{}, false
	}
	return p.results[p.selected], true
}

// SelectedIndex returns the highlighted row.
func (p *Palette) SelectedIndex() int { return p.selected }

// Up moves the selection up, stopping at the first row.
func (p *Palette) Up() {
	p.selected = max(0, p.selected-1)
}

// Down moves the selection down, stopping at the last visible row.
func (p *Palette) Down() {
	p.selected = max(0, min(p.selected+1, len(p.results)-1))
}

// Enter runs the selected entry's callback and closes the palette. It
// reports whether an entry was invoked; with no selection nothing happens.
func (p *Palette) Enter() bool {
	e, ok := p.Selected()
	if !ok {
		return false
	}
	if e.Run != nil {
		e.Run()
	}
	p.open = false
	return true
}

// Close closes the palette without running anything.
func (p *Palette) Close() { p.open = false }

// Reopen clears the query and opens the palette again.
func (p *Palette) Reopen() {
	p.open = true
	p.SetQuery("")
}

func (p *Palette) IsOpen() bool { return p.open }

func (p *Palette) refilter() {
	q := normalize(p.query)
	results := make([]Entry, 0, min(len(p.entries), MaxResults))
	for _, e := range p.entries {
		if len(results) == MaxResults {
			break
		}
		if q == "" || strings.Contains(e.text(), q) {
			results = append(results, e)
		}
	}
	p.results = results
}

func countMatches(entries []Entry, q string) int {
	if q == "" {
		return len(entries)
	}
	n := 0
	for _, e := range entries {
		if strings.Contains(e.text(), q) {
			n++
		}
	}
	return n
}

func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
