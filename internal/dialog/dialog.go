// Package dialog defines the user-interaction collaborators: text prompts,
// confirmations and destination pickers.
//
// Every method reports cancellation by returning ok=false. Cancellation is not
// an error; callers turn it into apperr.ErrCancelled and do nothing.
package dialog

import "context"

// Prompter asks the user for a line of text (project, file or folder name).
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, bool)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// Picker asks the user for a file to open or a destination to write.
type Picker interface {
	PickOpen(ctx context.Context) (string, bool)
	PickSave(ctx context.Context) (string, bool)
	PickExport(ctx context.Context) (string, bool)
}

// UI bundles every dialog capability.
type UI interface {
	Prompter
	Confirmer
	Picker
}

// Preset answers every dialog from values captured up front, typically from
// the request that triggered the action. Empty strings mean "cancelled".
type Preset struct {
	Text      string
	Confirmed bool
	Path      string
}

var _ UI = Preset{}

// Prompt returns the preset text.
func (p Preset) Prompt(_ context.Context, _ string) (string, bool) {
	return p.Text, p.Text != ""
}

// Confirm returns the preset answer.
func (p Preset) Confirm(_ context.Context, _ string) bool {
	return p.Confirmed
}

// PickOpen returns the preset path.
func (p Preset) PickOpen(_ context.Context) (string, bool) {
	return p.Path, p.Path != ""
}

// PickSave returns the preset path.
func (p Preset) PickSave(_ context.Context) (string, bool) {
	return p.Path, p.Path != ""
}

// PickExport returns the preset path.
func (p Preset) PickExport(_ context.Context) (string, bool) {
	return p.Path, p.Path != ""
}

// Cancel dismisses every dialog.
var Cancel UI = Preset{}
