package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podscribe/podscribe-api/internal/services/ai"
	"github.com/podscribe/podscribe-api/internal/services/vectors"
)

// SearchHandler answers semantic search over indexed transcript slices
type SearchHandler struct {
	embedder ai.Embedder
	vectors  vectors.Service
}

// NewSearchHandler creates a search handler
func NewSearchHandler(embedder ai.Embedder, vectorSvc vectors.Service) *SearchHandler {
	return &SearchHandler{embedder: embedder, vectors: vectorSvc}
}

type searchRequest struct {
	Query     string `json:"query" binding:"required"`
	PodcastID uint   `json:"podcast_id"`
	Limit     int    `json:"limit"`
}

// Search embeds the query and ranks stored slices by cosine similarity
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "query is required")
		return
	}

	if req.Limit <= 0 {
		req.Limit = 10
	} else if req.Limit > 100 {
		errorResponse(c, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	embedding, err := h.embedder.Embed(c.Request.Context(), req.Query)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to embed query")
		return
	}

	results, err := h.vectors.Search(c.Request.Context(), embedding, req.PodcastID, req.Limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "search failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}
