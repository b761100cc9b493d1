package ui

import "strings"

// Option is a selectable item identified by id and displayed by name.
type Option struct {
	ID   int
	Name string
}

// FilterOptions returns the options whose name contains the query,
// case-insensitively. An empty query returns everything.
func FilterOptions(options []Option, query string) []Option {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return options
	}
	var out []Option
	for _, o := range options {
		if strings.Contains(strings.ToLower(o.Name), query) {
			out = append(out, o)
		}
	}
	return out
}

// Select models the searchable dropdown: open/closed state plus the
// free-text search over an in-memory option list.
type Select struct {
	options []Option
	open    bool
	query   string
	chosen  *Option
}

// NewSelect builds a Select over the given options.
func NewSelect(options []Option) *Select {
	return &Select{options: options}
}

// Open opens the dropdown.
func (s *Select) Open() { s.open = true }

// IsOpen reports whether the dropdown is showing.
func (s *Select) IsOpen() bool { return s.open }

// Search sets the filter query.
func (s *Select) Search(query string) { s.query = query }

// Visible returns the options matching the current query.
func (s *Select) Visible() []Option {
	return FilterOptions(s.options, s.query)
}

// Choose selects the option with the given id, closing the dropdown and
// clearing the search.
func (s *Select) Choose(id int) bool {
	for _, o := range s.options {
		if o.ID == id {
			chosen := o
			s.chosen = &chosen
			s.Dismiss()
			return true
		}
	}
	return false
}

// Dismiss closes the dropdown and clears the search, as on an
// outside-pointer interaction.
func (s *Select) Dismiss() {
	s.open = false
	s.query = ""
}

// Chosen returns the selected option, or nil.
func (s *Select) Chosen() *Option { return s.chosen }

// SetOptions replaces the option list, dropping a selection that is no
// longer present.
func (s *Select) SetOptions(options []Option) {
	s.options = options
	if s.chosen == nil {
		return
	}
	for _, o := range options {
		if o.ID == s.chosen.ID {
			return
		}
	}
	s.chosen = nil
}
