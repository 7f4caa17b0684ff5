// Package handler provides HTTP handlers for the cratehub API.
package handler

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cratehub/cratehub/internal/manifest"
	"github.com/cratehub/cratehub/internal/registry"
	"github.com/cratehub/cratehub/internal/render"
	"github.com/cratehub/cratehub/internal/storage"
)

// SourcePage is the response body for a rendered source view: the listing of
// the requested directory plus, for file requests, the decoded content.
type SourcePage struct {
	Metadata       registry.Metadata `json:"metadata"`
	Files          []manifest.Node   `json:"files"`
	ShowParentLink bool              `json:"show_parent_link"`
	FileContent    string            `json:"file_content,omitempty"`
	FileHTML       string            `json:"file_html,omitempty"`
	IsRustSource   bool              `json:"is_rust_source"`
}

// SourceHandler serves the source browser endpoint.
type SourceHandler struct {
	reg      *registry.Registry
	renderer *render.Renderer
	log      *logrus.Logger
}

// NewSourceHandler creates a new source handler.
func NewSourceHandler(reg *registry.Registry, log *logrus.Logger) *SourceHandler {
	if log == nil {
		log = logrus.New()
	}
	return &SourceHandler{
		reg:      reg,
		renderer: render.New(),
		log:      log,
	}
}

// GetSource handles GET /crate/:name/:version/source/*path.
//
// The request either redirects to the canonical version URL, streams a
// non-text file as-is, renders a directory listing with optional inline
// content, or reports not-found. Version resolution happens exactly once;
// its result feeds both the listing and the content fetch.
func (h *SourceHandler) GetSource(c *gin.Context) {
	name := c.Param("name")
	requested := c.Param("version")
	rest := strings.TrimPrefix(c.Param("path"), "/")

	// Security: prevent path traversal
	if strings.Contains(rest, "..") {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid path"})
		return
	}

	m, err := h.reg.Resolve(name, requested)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "crate or version not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// A fuzzy match redirects to the canonical URL, keeping the sub-path.
	if m.Kind == registry.MatchSemver {
		c.Redirect(http.StatusFound, "/crate/"+m.Name+"/"+m.Version+"/source/"+rest)
		return
	}

	rel, err := h.reg.Release(m.Name, m.Version)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The same request path yields two derived paths: the full remainder
	// for the content fetch and, with the final file segment blanked, the
	// directory prefix for the listing.
	filePath := rest
	prefix := dirPrefix(rest)

	var fileContent, fileHTML string
	var isRust bool

	if filePath != "" && !strings.HasSuffix(filePath, "/") {
		store := storage.ForRelease(h.reg.Root(), rel.ArchiveStorage)
		data, err := store.Fetch(m.Name, m.Version, filePath)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// Absence is not fatal here; the listing decides existence.
		case err != nil:
			h.log.WithFields(logrus.Fields{
				"crate":   m.Name,
				"version": m.Version,
				"path":    filePath,
			}).Errorf("blob fetch failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
			return
		default:
			mime := manifest.MimeOf(rel.Files, filePath)
			if mime == "" {
				mime = "application/octet-stream"
			}

			if !strings.HasPrefix(mime, "text") && len(data) > 0 {
				// Non-text content is streamed directly, before the
				// listing is ever built.
				c.Data(http.StatusOK, mime, data)
				return
			}

			if strings.HasPrefix(mime, "text") && len(data) > 0 && utf8.Valid(data) {
				fileContent = string(data)
				isRust = strings.HasSuffix(filePath, ".rs")
				if render.IsMarkdown(filePath) {
					fileHTML, _ = h.renderer.Markdown(data)
				} else {
					fileHTML, _ = h.renderer.Highlight(filePath, fileContent)
				}
			}
		}
	}

	files, ok := manifest.BuildListing(rel.Files, prefix)
	if !ok {
		// An unknown directory is not-found even when the content fetch
		// above succeeded.
		c.JSON(http.StatusNotFound, gin.H{"error": "directory not found"})
		return
	}

	c.JSON(http.StatusOK, SourcePage{
		Metadata:       rel.Metadata,
		Files:          files,
		ShowParentLink: prefix != "",
		FileContent:    fileContent,
		FileHTML:       fileHTML,
		IsRustSource:   isRust,
	})
}

// dirPrefix returns the directory portion of a request path: the path
// itself for directory requests, otherwise everything up to and including
// the last separator.
func dirPrefix(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i+1]
}
