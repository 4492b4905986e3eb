package server

import (
	"net/http"
	"net/url"

	"doodle-chain/internal/store"
	"doodle-chain/internal/web"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleChainView(c *gin.Context) {
	rootID := c.Param("root")
	if rootID == "" || rootID == store.RootSentinel {
		writeError(c, http.StatusNotFound, "not found")
		return
	}
	doodles, err := s.chains.Chain(c.Request.Context(), rootID)
	if err != nil {
		writeStoreError(c, "load chain", err)
		return
	}
	if len(doodles) == 0 {
		writeError(c, http.StatusNotFound, "not found")
		return
	}
	page := web.ChainPage{RootID: rootID}
	for _, d := range doodles {
		page.Doodles = append(page.Doodles, web.ChainDoodle{
			ID:         d.ID,
			Artist:     d.Artist,
			ParentID:   d.Parent,
			TailLength: d.TailLength,
			ImageURL:   "/api/doodles/" + url.PathEscape(d.ID) + "/image",
			CreatedAt:  d.CreatedAt,
		})
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := web.ChainGallery(page).Render(c.Request.Context(), c.Writer); err != nil {
		_ = c.Error(err)
	}
}
