package handlers

import "net/http"

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"rag_initialized": true,
	})
}

// Welcome lists the service endpoints.
func Welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"message": "Backend successfully connected",
		"service": "Crammer API",
		"endpoints": map[string]string{
			"upload":     "/upload/multiple",
			"clear":      "/clear",
			"chat":       "/chat/",
			"flashcards": "/flashcards",
			"health":     "/health",
		},
	})
}
