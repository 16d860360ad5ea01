package sse

// Event types pushed to the UI.
const (
	EventPreviewUpdated  = "preview.updated"
	EventScrollApply     = "scroll.apply"
	EventDocumentChanged = "document.changed"
	EventThemeApplied    = "theme.applied"
	EventNodeCreated     = "tree.node.created"
	EventNodeDeleted     = "tree.node.deleted"
	EventNodeRenamed     = "tree.node.renamed"
	EventTreeChanged     = "tree.changed"
)

// PublishPreview announces the HTML rendered for a document revision.
func (b *Broker) PublishPreview(rev uint64, html string) {
	b.Publish(Event{Type: EventPreviewUpdated, Data: struct {
		Rev  uint64 `json:"rev"`
		HTML string `json:"html"`
	}{rev, html}})
}

// PublishScroll asks the UI to move pane to scrollTop.
func (b *Broker) PublishScroll(pane string, scrollTop float64) {
	b.Publish(Event{Type: EventScrollApply, Data: struct {
		Pane      string  `json:"pane"`
		ScrollTop float64 `json:"scrollTop"`
	}{pane, scrollTop}})
}

// PublishDocument announces that the open document's path, dirty or
// orphaned flag changed.
func (b *Broker) PublishDocument(path string, dirty, orphaned bool) {
	b.Publish(Event{Type: EventDocumentChanged, Data: struct {
		Path     string `json:"path"`
		Dirty    bool   `json:"dirty"`
		Orphaned bool   `json:"orphaned"`
	}{path, dirty, orphaned}})
}

// PublishTheme announces the active theme.
func (b *Broker) PublishTheme(id string) {
	b.Publish(Event{Type: EventThemeApplied, Data: map[string]string{"id": id}})
}
