package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	maxAssetSize = 10 << 20 // 10 MB

	// assetsDir is the folder, next to the embedding document, that receives
	// uploaded assets.
	assetsDir = "assets"

	downloadTimeout = 30 * time.Second
	maxRedirects    = 5
)

// assetTypes maps accepted media types to the extension files are saved with.
var assetTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"application/pdf": ".pdf",
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// asset is an upload fetched from a URL or decoded from a data URI.
type asset struct {
	data      []byte
	mediaType string // as declared by the source; may be empty
}

type uploadResult struct {
	SavedPath     string `json:"savedPath"`
	MarkdownImage string `json:"markdownImage"`
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, err := req.RequireString("dir")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	a, err := loadAsset(ctx, raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := assetName(raw, req.GetString("filename", ""), assetTypes[a.mediaType])
	if err := checkContent(a.data, strings.ToLower(filepath.Ext(name))); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	dest := filepath.Join(s.abs(dir), assetsDir, name)
	if _, err := s.store.ReadFile(ctx, dest); err == nil {
		return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", s.rel(dest))), nil
	}
	written, err := s.store.WriteFile(ctx, dest, a.data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save asset: %v", err)), nil
	}

	out, _ := json.Marshal(uploadResult{
		SavedPath:     s.rel(written),
		MarkdownImage: fmt.Sprintf("![%s](%s/%s)", name, assetsDir, name),
	})
	return mcp.NewToolResultText(string(out)), nil
}

// loadAsset decodes a data URI or downloads an http(s) URL.
func loadAsset(ctx context.Context, raw string) (asset, error) {
	if strings.HasPrefix(raw, "data:") {
		return parseDataURI(raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return asset{}, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return asset{}, fmt.Errorf("unsupported scheme: %s (only http/https)", u.Scheme)
	}
	return download(ctx, u)
}

// parseDataURI accepts data:<mediatype>;base64,<payload> only.
func parseDataURI(raw string) (asset, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return asset{}, errors.New("invalid data URI: missing comma separator")
	}
	meta, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return asset{}, errors.New("only base64 data URIs are supported")
	}
	mediaType, _, err := mime.ParseMediaType(meta)
	if err != nil {
		return asset{}, fmt.Errorf("invalid data URI media type: %w", err)
	}
	if _, ok := assetTypes[mediaType]; !ok {
		return asset{}, fmt.Errorf("unsupported MIME type in data URI: %s", mediaType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return asset{}, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxAssetSize {
		return asset{}, fmt.Errorf("file too large: %d bytes (max %d)", len(data), maxAssetSize)
	}
	return asset{data: data, mediaType: mediaType}, nil
}

func download(ctx context.Context, u *url.URL) (asset, error) {
	if err := blockedHost(u.Hostname()); err != nil {
		return asset{}, err
	}
	client := &http.Client{
		Timeout: downloadTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			return blockedHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return asset{}, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return asset{}, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return asset{}, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return asset{}, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxAssetSize {
		return asset{}, fmt.Errorf("file too large: exceeds %d bytes", maxAssetSize)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return asset{data: data, mediaType: mediaType}, nil
}

// blockedHost rejects loopback, unspecified and link-local addresses, which
// covers the cloud metadata endpoints.
func blockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil //nolint:nilerr // the HTTP client reports DNS failures
		}
		ip = ips[0]
	}

	switch {
	case ip.IsLoopback():
		return fmt.Errorf("blocked host: loopback address %s", host)
	case ip.IsUnspecified():
		return fmt.Errorf("blocked host: unspecified address %s", host)
	case ip.IsLinkLocalUnicast():
		return fmt.Errorf("blocked host: link-local address %s", host)
	}
	return nil
}

// assetName picks the saved file name: the requested one, else the last URL
// path element, else a uuid with the extension of the media type.
func assetName(raw, requested, ext string) string {
	name := requested
	if name == "" && !strings.HasPrefix(raw, "data:") {
		if u, err := url.Parse(raw); err == nil {
			if base := path.Base(u.Path); strings.Contains(base, ".") {
				name = base
			}
		}
	}
	if name == "" {
		if ext == "" {
			ext = ".bin"
		}
		name = uuid.NewString() + ext
	}
	return sanitizeFilename(name)
}

// sanitizeFilename strips path separators and unsafe characters.
func sanitizeFilename(name string) string {
	name = unsafeNameChars.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." {
		name = uuid.NewString()
	}
	return name
}

// checkContent verifies that ext is accepted and that data looks like it.
func checkContent(data []byte, ext string) error {
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	accepted := false
	for _, e := range assetTypes {
		accepted = accepted || e == ext
	}
	if !accepted {
		return fmt.Errorf("unsupported file extension: %s (allowed: png, jpg, jpeg, gif, webp, svg, pdf)", ext)
	}

	if ext == ".svg" {
		head := data[:min(len(data), 1024)]
		if !bytes.Contains(head, []byte("<svg")) {
			return errors.New("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}

	detected := http.DetectContentType(data)
	mediaType, _, _ := mime.ParseMediaType(detected)
	if assetTypes[mediaType] != ext {
		return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
	}
	return nil
}
