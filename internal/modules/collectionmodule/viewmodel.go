package collectionmodule

import (
	"github.com/filmsearch/filmsearch/internal/database"
)

// FieldGroup is a named group of fields in the admin editing surface
type FieldGroup struct {
	Label  string   `json:"label"`
	Fields []string `json:"fields"`
}

// ViewModel describes how a collection should be presented for editing.
// The groups are fixed per collection kind rather than computed per request.
type ViewModel struct {
	Kind     string       `json:"kind"`
	ReadOnly []string     `json:"read_only"`
	Groups   []FieldGroup `json:"groups"`
}

// BuildViewModel returns the editing descriptor for a collection's state
func BuildViewModel(c *database.Collection) ViewModel {
	if c.IsSystem {
		return ViewModel{
			Kind:     "system",
			ReadOnly: []string{"is_system", "is_public", "user_id"},
			Groups: []FieldGroup{
				{Label: "Collection", Fields: []string{"title", "description"}},
				{Label: "Visibility", Fields: []string{"is_public"}},
			},
		}
	}
	return ViewModel{
		Kind:     "user",
		ReadOnly: []string{"is_system", "user_id"},
		Groups: []FieldGroup{
			{Label: "Collection", Fields: []string{"title", "description"}},
			{Label: "Ownership", Fields: []string{"user_id"}},
			{Label: "Visibility", Fields: []string{"is_public"}},
		},
	}
}
