// Package theme keeps the set of color themes and the active one.
package theme

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/lucasb-eyer/go-colorful"
)

// Style holds the colors of one surface.
type Style struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
	Border     string `json:"border"`
}

// Theme styles every surface of the workbench.
type Theme struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Editor  Style  `json:"editor"`
	Preview Style  `json:"preview"`
	Sidebar Style  `json:"sidebar"`
	Toolbar Style  `json:"toolbar"`
	Body    Style  `json:"body"`
}

// Set is the persisted theme document.
type Set struct {
	Active string  `json:"active"`
	Themes []Theme `json:"themes"`
}

// Find returns the theme with id.
func (s Set) Find(id string) (Theme, bool) {
	for _, t := range s.Themes {
		if t.ID == id {
			return t, true
		}
	}
	return Theme{}, false
}

func (s Set) clone() Set {
	c := Set{Active: s.Active, Themes: make([]Theme, len(s.Themes))}
	copy(c.Themes, s.Themes)
	return c
}

// Builtin returns the light and dark themes used until a set is loaded.
func Builtin() Set {
	return Set{
		Active: "light",
		Themes: []Theme{
			{
				ID:      "light",
				Name:    "Light",
				Editor:  Style{Background: "#ffffff", Foreground: "#24292f", Border: "#d0d7de"},
				Preview: Style{Background: "#ffffff", Foreground: "#1f2328", Border: "#d0d7de"},
				Sidebar: Style{Background: "#f6f8fa", Foreground: "#24292f", Border: "#d0d7de"},
				Toolbar: Style{Background: "#f6f8fa", Foreground: "#24292f", Border: "#d0d7de"},
				Body:    Style{Background: "#ffffff", Foreground: "#24292f", Border: "#d0d7de"},
			},
			{
				ID:      "dark",
				Name:    "Dark",
				Editor:  Style{Background: "#0d1117", Foreground: "#c9d1d9", Border: "#30363d"},
				Preview: Style{Background: "#0d1117", Foreground: "#e6edf3", Border: "#30363d"},
				Sidebar: Style{Background: "#161b22", Foreground: "#c9d1d9", Border: "#30363d"},
				Toolbar: Style{Background: "#161b22", Foreground: "#c9d1d9", Border: "#30363d"},
				Body:    Style{Background: "#0d1117", Foreground: "#c9d1d9", Border: "#30363d"},
			},
		},
	}
}

var isColor = validation.By(func(v interface{}) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := colorful.Hex(s); err != nil {
		return fmt.Errorf("must be a #rrggbb color")
	}
	return nil
})

// Validate implements validation.Validatable.
func (s Style) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Background, isColor),
		validation.Field(&s.Foreground, isColor),
		validation.Field(&s.Border, isColor),
	)
}

// Validate implements validation.Validatable.
func (t Theme) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.Required),
		validation.Field(&t.Name, validation.Required),
		validation.Field(&t.Editor),
		validation.Field(&t.Preview),
		validation.Field(&t.Sidebar),
		validation.Field(&t.Toolbar),
		validation.Field(&t.Body),
	)
}

// Validate checks every theme and that ids are unique.
func (s Set) Validate() error {
	if err := validation.ValidateStruct(&s,
		validation.Field(&s.Themes, validation.Required),
	); err != nil {
		return err
	}
	seen := make(map[string]bool, len(s.Themes))
	for i, t := range s.Themes {
		if seen[t.ID] {
			return fmt.Errorf("themes[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// CSS renders t as CSS custom properties on :root, one
// --<surface>-<property> variable per color.
func (t Theme) CSS() string {
	var b strings.Builder
	fmt.Fprintf(&b, ":root[data-theme=%q], :root {\n", t.ID)
	for _, s := range []struct {
		name  string
		style Style
	}{
		{"body", t.Body},
		{"editor", t.Editor},
		{"preview", t.Preview},
		{"sidebar", t.Sidebar},
		{"toolbar", t.Toolbar},
	} {
		writeVar(&b, s.name, "bg", s.style.Background)
		writeVar(&b, s.name, "fg", s.style.Foreground)
		writeVar(&b, s.name, "border", s.style.Border)
	}
	b.WriteString("}\n")
	return b.String()
}

func writeVar(b *strings.Builder, surface, prop, value string) {
	if value == "" {
		return
	}
	// Normalized through colorful so equivalent inputs give identical CSS.
	if c, err := colorful.Hex(value); err == nil {
		value = c.Hex()
	}
	fmt.Fprintf(b, "  --%s-%s: %s;\n", surface, prop, value)
}
