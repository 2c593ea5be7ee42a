package wizard

import "electrobot/catalog/internal/index"

type Selection struct {
	Attr  string `json:"attr"`
	Value string `json:"value"`
}

// View is what the bot layer renders after each action: the accumulated
// selections, the current step and its candidate values.
type View struct {
	Category   string             `json:"category"`
	Slug       string             `json:"slug"`
	Step       int                `json:"step"`
	TotalSteps int                `json:"total_steps"`
	Attribute  string             `json:"attribute,omitempty"`
	Options    []index.ValueCount `json:"options,omitempty"`
	Selections []Selection        `json:"selections"`
	Matches    int                `json:"matches"`
	Done       bool               `json:"done"`
}

func (w *Wizard) render(c *cursor) *View {
	view := &View{
		Category:   c.category,
		Slug:       c.session.Category,
		Step:       c.session.Step,
		TotalSteps: len(c.steps),
		Selections: make([]Selection, 0, c.session.Selections.Len()),
		Done:       c.session.Step >= len(c.steps),
	}
	c.session.Selections.Each(func(attr, value string) {
		view.Selections = append(view.Selections, Selection{Attr: attr, Value: value})
	})
	if !view.Done {
		view.Attribute = c.steps[c.session.Step]
		view.Options = c.snap.Index.Values(c.category, view.Attribute, w.optionsPerStep)
	}
	view.Matches = w.countMatches(c)
	return view
}

func (w *Wizard) countMatches(c *cursor) int {
	n := 0
	for i := range c.snap.Products {
		p := &c.snap.Products[i]
		if p.Category == c.category && w.filter.Match(p, c.session.Selections) {
			n++
		}
	}
	return n
}

// Labels returns the selections as "attr: value" lines in selection order.
func (v *View) Labels() []string {
	out := make([]string, len(v.Selections))
	for i, s := range v.Selections {
		out[i] = s.Attr + ": " + s.Value
	}
	return out
}
