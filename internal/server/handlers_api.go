package server

import (
	"errors"
	"net/http"

	"doodle-chain/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type idURI struct {
	ID string `uri:"id" binding:"required"`
}

type doodleQueryRequest struct {
	Root   string `form:"root"`
	Parent string `form:"parent"`
	Artist string `form:"artist"`
	InGame *bool  `form:"in_game"`
}

type gameQueryRequest struct {
	Code string `form:"code" binding:"required"`
}

var doodleMessages = bindMessages{
	"image_data":  {"required": "image_data is required"},
	"artist":      {"required": "artist is required", "user": "artist is not a valid user reference"},
	"root":        {"required": "root is required"},
	"tail_length": {"min": "tail_length must be at least 1"},
}

var gameMessages = bindMessages{
	"game_code":  {"required": "game_code is required", "gamecode": "game_code must be 4-12 letters or digits"},
	"creator":    {"required": "creator is required", "user": "creator is not a valid user reference"},
	"players":    {"user": "players must be valid user references"},
	"round":      {"min": "round must be -1 or greater"},
	"time_limit": {"min": "time_limit must be positive"},
}

var gameQueryMessages = bindMessages{
	"code": {"required": "code is required"},
}

// decodeDoodle turns a bound payload into a record, enforcing the image cap.
func (s *Server) decodeDoodle(c *gin.Context, req store.DoodlePayload) (store.Doodle, bool) {
	doodle, err := req.Doodle()
	if err != nil {
		writeError(c, http.StatusBadRequest, "image_data must be a base64 data URL")
		return store.Doodle{}, false
	}
	if s.cfg.MaxImageBytes > 0 && len(doodle.Image) > s.cfg.MaxImageBytes {
		writeError(c, http.StatusRequestEntityTooLarge, "image is too large")
		return store.Doodle{}, false
	}
	return doodle, true
}

func (s *Server) handleCreateDoodle(c *gin.Context) {
	var req store.DoodlePayload
	if !bindJSON(c, &req, doodleMessages, "invalid doodle") {
		return
	}
	doodle, ok := s.decodeDoodle(c, req)
	if !ok {
		return
	}
	if err := s.store.CreateDoodle(c.Request.Context(), &doodle); err != nil {
		writeStoreError(c, "create doodle", err)
		return
	}
	log.Info().
		Str("doodle_id", doodle.ID).
		Str("artist", doodle.Artist).
		Str("root", doodle.Root).
		Int("tail_length", doodle.TailLength).
		Msg("doodle created")
	c.JSON(http.StatusCreated, store.NewDoodlePayload(doodle))
}

func (s *Server) handleFetchDoodle(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	doodle, err := s.store.FetchDoodle(c.Request.Context(), uri.ID)
	if err != nil {
		writeStoreError(c, "fetch doodle", err)
		return
	}
	c.JSON(http.StatusOK, store.NewDoodlePayload(doodle))
}

func (s *Server) handleDoodleImage(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	doodle, err := s.store.FetchDoodle(c.Request.Context(), uri.ID)
	if err != nil {
		writeStoreError(c, "fetch doodle image", err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, store.ImageContentType(doodle.Image), doodle.Image)
}

func (s *Server) handleUpdateDoodle(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	var req store.DoodlePayload
	if !bindJSON(c, &req, doodleMessages, "invalid doodle") {
		return
	}
	doodle, ok := s.decodeDoodle(c, req)
	if !ok {
		return
	}
	doodle.ID = uri.ID
	if err := s.store.UpdateDoodle(c.Request.Context(), doodle); err != nil {
		writeStoreError(c, "update doodle", err)
		return
	}
	c.JSON(http.StatusOK, store.NewDoodlePayload(doodle))
}

func (s *Server) handleDeleteDoodle(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	if err := s.store.DeleteDoodle(c.Request.Context(), uri.ID); err != nil {
		writeStoreError(c, "delete doodle", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleQueryDoodles(c *gin.Context) {
	var req doodleQueryRequest
	if !bindQuery(c, &req, nil) {
		return
	}
	doodles, err := s.store.QueryDoodles(c.Request.Context(), store.DoodleQuery{
		Root:   req.Root,
		Parent: req.Parent,
		Artist: req.Artist,
		InGame: req.InGame,
	})
	if err != nil {
		writeStoreError(c, "query doodles", err)
		return
	}
	payloads := make([]store.DoodlePayload, 0, len(doodles))
	for _, doodle := range doodles {
		payloads = append(payloads, store.NewDoodlePayload(doodle))
	}
	c.JSON(http.StatusOK, gin.H{"doodles": payloads})
}

func (s *Server) handleCreateGame(c *gin.Context) {
	var req store.GamePayload
	if !bindJSON(c, &req, gameMessages, "invalid game") {
		return
	}
	game := req.Game()
	if err := s.store.CreateGame(c.Request.Context(), &game); err != nil {
		writeStoreError(c, "create game", err)
		return
	}
	log.Info().Str("game_id", game.ID).Str("game_code", game.GameCode).Msg("game created")
	c.JSON(http.StatusCreated, store.NewGamePayload(game))
}

func (s *Server) handleFindGames(c *gin.Context) {
	var req gameQueryRequest
	if !bindQuery(c, &req, gameQueryMessages) {
		return
	}
	games := make([]store.GamePayload, 0, 1)
	game, err := s.store.FindGameByCode(c.Request.Context(), req.Code)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		writeStoreError(c, "find game", err)
		return
	default:
		games = append(games, store.NewGamePayload(game))
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

func (s *Server) handleFetchGame(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	game, err := s.store.FetchGame(c.Request.Context(), uri.ID)
	if err != nil {
		writeStoreError(c, "fetch game", err)
		return
	}
	c.JSON(http.StatusOK, store.NewGamePayload(game))
}

func (s *Server) handleUpdateGame(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	var req store.GamePayload
	if !bindJSON(c, &req, gameMessages, "invalid game") {
		return
	}
	game := req.Game()
	game.ID = uri.ID
	if err := s.store.UpdateGame(c.Request.Context(), game); err != nil {
		writeStoreError(c, "update game", err)
		return
	}
	stored, err := s.store.FetchGame(c.Request.Context(), uri.ID)
	if err != nil {
		writeStoreError(c, "fetch game", err)
		return
	}
	c.JSON(http.StatusOK, store.NewGamePayload(stored))
}

func (s *Server) handleDeleteGame(c *gin.Context) {
	var uri idURI
	if !bindURI(c, &uri) {
		return
	}
	if err := s.store.DeleteGame(c.Request.Context(), uri.ID); err != nil {
		writeStoreError(c, "delete game", err)
		return
	}
	log.Info().Str("game_id", uri.ID).Msg("game deleted")
	c.Status(http.StatusNoContent)
}
