package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/starford/inkwell/internal/render"
	"github.com/starford/inkwell/internal/storage"
)

func testExporter(t *testing.T) (*PDF, *storage.FS) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return NewPDF(render.New(render.Options{}, nil), store, PDFOptions{}), store
}

func TestBuild_ProducesPDF(t *testing.T) {
	p, _ := testExporter(t)
	data, err := p.Build("# Title\n\nSome text with accents: café.\n\n- item\n\n```\ncode\n```\n\n---\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output does not look like a PDF: %q", data[:min(len(data), 16)])
	}
}

func TestBuild_EmptyDocument(t *testing.T) {
	p, _ := testExporter(t)
	if _, err := p.Build(""); err != nil {
		t.Fatalf("Build empty: %v", err)
	}
}

func TestExport_AppendsExtensionAndWrites(t *testing.T) {
	p, store := testExporter(t)
	dest := filepath.Join(store.Root(), "out", "doc")
	written, err := p.Export(context.Background(), "# Hello", dest)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if written != dest+".pdf" {
		t.Errorf("written = %q, want %q", written, dest+".pdf")
	}
	f, err := store.ReadFile(context.Background(), written)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(f.Content, []byte("%PDF-")) {
		t.Error("written file is not a PDF")
	}
}

func TestExport_RejectsOutsideRoot(t *testing.T) {
	p, _ := testExporter(t)
	if _, err := p.Export(context.Background(), "# x", "/etc/evil.pdf"); err == nil {
		t.Error("expected error for destination outside the projects root")
	}
	if _, err := p.Export(context.Background(), "# x", ""); err == nil {
		t.Error("expected error for empty destination")
	}
}
