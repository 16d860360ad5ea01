package api

import (
	"io"
	"net/http"

	"github.com/starford/inkwell/internal/theme"
)

// Themes handles GET /api/themes.
func (h *Handler) Themes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wb.Themes.Set())
}

// PersistThemes handles PUT /api/themes.
//
//	@Summary		Replace the theme set
//	@Tags			themes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		theme.Set	true	"Full theme set"
//	@Success		200		{object}	theme.Set
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/themes [put]
func (h *Handler) PersistThemes(w http.ResponseWriter, r *http.Request) {
	var set theme.Set
	if !decode(w, r, &set) {
		return
	}
	if err := set.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.wb.Themes.Persist(r.Context(), set); err != nil {
		writeError(w, "persist themes", err)
		return
	}
	writeJSON(w, http.StatusOK, h.wb.Themes.Set())
}

// ApplyTheme handles POST /api/themes/apply. Unknown ids are ignored, not
// rejected.
func (h *Handler) ApplyTheme(w http.ResponseWriter, r *http.Request) {
	var req ApplyThemeRequest
	if !decode(w, r, &req) {
		return
	}
	applied := h.wb.Themes.Apply(req.ID)
	writeJSON(w, http.StatusOK, ApplyThemeResponse{Applied: applied, Active: h.wb.Themes.Active().ID})
}

// ThemeCSS handles GET /api/themes/active.css.
func (h *Handler) ThemeCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = io.WriteString(w, h.wb.Themes.CSS())
}
