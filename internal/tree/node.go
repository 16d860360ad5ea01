package tree

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/inkwell/internal/models"
)

// Kind distinguishes the three node variants.
type Kind string

const (
	KindProject Kind = "project"
	KindFolder  Kind = "folder"
	KindFile    Kind = "file"
)

// State is the load state of a project or folder.
type State string

const (
	Unloaded State = "unloaded"
	Loading  State = "loading"
	Loaded   State = "loaded"
	Stale    State = "stale"
	Failed   State = "error"
)

// Node is one project, folder or file. Path is the sole correlation key with
// the storage layer.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Kind     Kind    `json:"kind"`
	Children []*Node `json:"children,omitempty"`
	Expanded bool    `json:"expanded,omitempty"`
	State    State   `json:"state,omitempty"`
	Err      string  `json:"error,omitempty"`
	Active   bool    `json:"active,omitempty"`
	Icon     string  `json:"icon"`

	gen uint64 // generation of the load that owns State
}

// IsDir reports whether the node can have children.
func (n *Node) IsDir() bool {
	return n.Kind != KindFile
}

// clone deep-copies n, marking the node whose path equals active.
func (n *Node) clone(active string) *Node {
	c := *n
	c.gen = 0
	c.Active = n.Kind == KindFile && n.Path == active
	c.Icon = n.icon()
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.clone(active)
		}
	}
	return &c
}

// icon names the glyph the UI draws for the node.
func (n *Node) icon() string {
	switch {
	case n.Kind == KindFile:
		return "file-markdown"
	case n.State == Loading:
		return "spinner"
	case n.State == Failed:
		return "warning"
	case n.Kind == KindProject:
		return "project"
	case n.Expanded:
		return "folder-open"
	default:
		return "folder"
	}
}

func newNode(e models.Entry, dirKind Kind) *Node {
	if e.IsDirectory {
		return &Node{Name: e.Name, Path: e.Path, Kind: dirKind, State: Unloaded}
	}
	return &Node{Name: e.Name, Path: e.Path, Kind: KindFile}
}

// sortNodes orders folders before files, then by case-insensitive name, then
// by name.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}

// within reports whether p lies strictly below dir.
func within(dir, p string) bool {
	return strings.HasPrefix(p, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}

// rebase moves p from below oldDir to below newDir.
func rebase(p, oldDir, newDir string) string {
	if p == oldDir {
		return newDir
	}
	if within(oldDir, p) {
		return filepath.Join(newDir, strings.TrimPrefix(p, oldDir+string(filepath.Separator)))
	}
	return p
}
