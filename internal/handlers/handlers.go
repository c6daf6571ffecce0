package handlers

import (
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	announce "vortcheno/internal/announce"
	constants "vortcheno/internal/constants"
	dictionary "vortcheno/internal/dictionary"
	engine "vortcheno/internal/engine"
	game "vortcheno/internal/game"
	models "vortcheno/internal/models"
	registry "vortcheno/internal/registry"
	util "vortcheno/internal/util"
)

// Env bundles what the HTTP surface needs. Handlers are thin: parse, call
// the engine, translate the result.
type Env struct {
	Engine    *engine.Engine
	Dict      *dictionary.Validator
	Log       *announce.ChatLog
	Cfg       models.GameConfig
	StartTime time.Time
}

type playerReq struct {
	ID     int64  `json:"id" binding:"required"`
	Handle string `json:"handle"`
}

type startReq struct {
	Players []playerReq `json:"players" binding:"required"`
}

type wordReq struct {
	PlayerID int64  `json:"playerId" binding:"required"`
	Word     string `json:"word" binding:"required"`
}

type leaveReq struct {
	PlayerID int64 `json:"playerId" binding:"required"`
}

func (env *Env) StartGameHandler(c *gin.Context) {
	chatID, ok := chatParam(c)
	if !ok {
		return
	}

	var req startReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "players list is required")
		return
	}

	players := lo.Map(req.Players, func(p playerReq, _ int) models.Player {
		return models.Player{ID: p.ID, Handle: p.Handle, Active: true}
	})

	snap, err := env.Engine.StartGame(chatID, players)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (env *Env) SubmitWordHandler(c *gin.Context) {
	chatID, ok := chatParam(c)
	if !ok {
		return
	}

	var req wordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "playerId and word are required")
		return
	}

	res, err := env.Engine.SubmitWord(c.Request.Context(), chatID, req.PlayerID, req.Word)
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{
		"outcome": res.Outcome,
		"word":    res.Word,
	}
	if res.Outcome == game.OutcomeAccepted {
		body["letter"] = string(res.Letter)
		body["length"] = res.Length
		body["nextPlayer"] = res.Next
		body["deadline"] = res.Deadline
	}
	status := http.StatusOK
	if res.Outcome == game.OutcomeValidationUnavailable {
		// Echo the unchanged requirement so the client knows the turn is
		// exactly where it was.
		body["letter"] = string(res.Letter)
		body["length"] = res.Length
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, body)
}

func (env *Env) JoinGameHandler(c *gin.Context) {
	chatID, ok := chatParam(c)
	if !ok {
		return
	}

	var req playerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "player id is required")
		return
	}

	if err := env.Engine.JoinGame(chatID, models.Player{ID: req.ID, Handle: req.Handle, Active: true}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"joined": true})
}

func (env *Env) LeaveGameHandler(c *gin.Context) {
	chatID, ok := chatParam(c)
	if !ok {
		return
	}

	var req leaveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "playerId is required")
		return
	}

	if err := env.Engine.LeaveGame(chatID, req.PlayerID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}

func (env *Env) StopGameHandler(c *gin.Context) {
	chatID, ok := chatParam(c)
	if !ok {
		return
	}

	if err := env.Engine.StopGame(chatID); err != nil {
		writeError(c, err)
		return
	}
	env.Log.Clear(chatID)
	c.JSON(http.StatusOK, gin.H{"stopped": true})
}

func (env *Env) StatusHandler(c *gin.Context) {
	chatID, ok := chatParam(c)
	if !ok {
		return
	}

	snap, err := env.Engine.Status(chatID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (env *Env) MessagesHandler(c *gin.Context) {
	chatID, ok := chatParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": env.Log.Recent(chatID)})
}

func (env *Env) HealthzHandler(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(env.StartTime)

	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"active_games":        env.Engine.ActiveGames(),
		"max_games":           env.Cfg.MaxSessions,
		"validator_available": env.Dict.Available(c.Request.Context()),
		"cached_words":        env.Dict.CacheLen(),
		"memory_alloc_mb":     m.Alloc / 1024 / 1024,
		"memory_sys_mb":       m.Sys / 1024 / 1024,
		"memory_gc_count":     m.NumGC,
		"uptime":              util.FormatUptime(uptime),
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
	})
}

func chatParam(c *gin.Context) (int64, bool) {
	chatID, err := strconv.ParseInt(c.Param("chat"), 10, 64)
	if err != nil {
		badRequest(c, "chat id must be an integer")
		return 0, false
	}
	return chatID, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": constants.ErrorCodeBadRequest, "message": msg})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, game.ErrGameAlreadyActive):
		c.JSON(http.StatusConflict, gin.H{"error": constants.ErrorCodeGameExists})
	case errors.Is(err, game.ErrNoActiveGame):
		c.JSON(http.StatusNotFound, gin.H{"error": constants.ErrorCodeNoGame})
	case errors.Is(err, game.ErrNotYourTurn):
		c.JSON(http.StatusForbidden, gin.H{"error": constants.ErrorCodeNotYourTurn})
	case errors.Is(err, game.ErrGameFull):
		c.JSON(http.StatusConflict, gin.H{"error": constants.ErrorCodeGameFull})
	case errors.Is(err, game.ErrNoPlayers):
		c.JSON(http.StatusBadRequest, gin.H{"error": constants.ErrorCodeNoPlayers})
	case errors.Is(err, registry.ErrCapacityExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": constants.ErrorCodeCapacityExceeded})
	case errors.Is(err, game.ErrInternal):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	default:
		util.LogError("Unhandled engine error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
