package domain

import "encoding/json"

// Selections is an insertion-ordered attribute -> value map. The order is the
// order in which the user constrained the search.
type Selections struct {
	keys   []string
	values map[string]string
}

type selectionPair struct {
	Attr  string `json:"attr"`
	Value string `json:"value"`
}

func NewSelections() *Selections {
	return &Selections{values: make(map[string]string)}
}

// Set records value for attr. Re-setting an existing attr keeps its position.
func (s *Selections) Set(attr, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[attr]; !ok {
		s.keys = append(s.keys, attr)
	}
	s.values[attr] = value
}

func (s *Selections) Get(attr string) (string, bool) {
	v, ok := s.values[attr]
	return v, ok
}

// Delete removes attr and reports whether it was present.
func (s *Selections) Delete(attr string) bool {
	if _, ok := s.values[attr]; !ok {
		return false
	}
	delete(s.values, attr)
	for i, k := range s.keys {
		if k == attr {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

func (s *Selections) Clear() {
	s.keys = nil
	s.values = make(map[string]string)
}

func (s *Selections) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

func (s *Selections) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Each calls fn for every pair in insertion order.
func (s *Selections) Each(fn func(attr, value string)) {
	if s == nil {
		return
	}
	for _, k := range s.keys {
		fn(k, s.values[k])
	}
}

func (s *Selections) Clone() *Selections {
	c := NewSelections()
	s.Each(c.Set)
	return c
}

func (s *Selections) MarshalJSON() ([]byte, error) {
	pairs := make([]selectionPair, 0, s.Len())
	s.Each(func(attr, value string) {
		pairs = append(pairs, selectionPair{Attr: attr, Value: value})
	})
	return json.Marshal(pairs)
}

func (s *Selections) UnmarshalJSON(data []byte) error {
	var pairs []selectionPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	s.Clear()
	for _, p := range pairs {
		s.Set(p.Attr, p.Value)
	}
	return nil
}
