package summaryhttp

import "github.com/go-chi/chi/v5"

// MountRoutes registers the annual summary procedure for GET and POST.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get(MethodPath, h.handleAnnualSummary)
	r.Post(MethodPath, h.handleAnnualSummary)
}
