// Package models defines the value types exchanged between the workspace
// engine and its file-system collaborator.
package models

import "time"

// Entry is one item of a directory listing.
type Entry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	IsDirectory bool      `json:"isDirectory"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// File is the result of reading a document.
type File struct {
	Path    string `json:"path"`
	Content []byte `json:"-"`
}

// RecentDocument is a row of the recent-documents list.
type RecentDocument struct {
	Path     string    `json:"path"`
	Title    string    `json:"title"`
	Checksum string    `json:"checksum"`
	OpenedAt time.Time `json:"opened_at"`
}
