package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	announce "vortcheno/internal/announce"
	constants "vortcheno/internal/constants"
	dictionary "vortcheno/internal/dictionary"
	engine "vortcheno/internal/engine"
	handlers "vortcheno/internal/handlers"
	models "vortcheno/internal/models"
	util "vortcheno/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfg := models.GameConfigFromEnv()
	util.LogInfo("Starting Vortcheno: turn %v, max %d players/game, max %d games",
		cfg.TurnDuration, cfg.MaxPlayers, cfg.MaxSessions)

	wordListPath := util.GetEnvString("WORD_LIST_PATH", "data/words.txt")
	if dir := filepath.Dir(wordListPath); !util.DirExists(dir) {
		util.LogFatal("Word list directory %s does not exist", dir)
	}
	fileSource, err := dictionary.NewFileSource(wordListPath)
	if err != nil {
		util.LogFatal("Failed to load word list: %v", err)
	}

	fallbackURL := util.GetEnvString("DICTIONARY_API_URL", "https://api.dictionaryapi.dev/api/v2/entries/en")
	fallbackTimeout := util.GetEnvDuration("DICTIONARY_API_TIMEOUT", 5*time.Second)
	webSource := dictionary.NewWebSource(fallbackURL, fallbackTimeout)

	validator, err := dictionary.NewValidator(cfg.CacheSize, fileSource, webSource)
	if err != nil {
		util.LogFatal("Failed to build word validator: %v", err)
	}

	chatLog := announce.NewChatLog(util.GetEnvInt("CHAT_LOG_SIZE", 50))
	eng := engine.New(cfg, validator, announce.NewLogAnnouncer(chatLog))
	defer eng.Shutdown()

	env := &handlers.Env{
		Engine:    eng,
		Dict:      validator,
		Log:       chatLog,
		Cfg:       cfg,
		StartTime: time.Now(),
	}

	limiters := newRateLimiters(
		util.GetEnvInt("RATE_LIMIT_RPS", 5),
		util.GetEnvInt("RATE_LIMIT_BURST", 10),
		util.GetEnvDuration("RATE_LIMITER_TTL", time.Hour),
	)
	limiters.startCleanup()

	router := gin.Default()
	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(noStoreMiddleware())
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		util.LogWarn("Failed to set trusted proxies: %v", err)
	}

	router.GET(constants.RouteHealthz, env.HealthzHandler)
	router.GET(constants.RouteGame, env.StatusHandler)
	router.GET(constants.RouteMessages, env.MessagesHandler)
	router.POST(constants.RouteStart, limiters.middleware(), env.StartGameHandler)
	router.POST(constants.RouteStop, limiters.middleware(), env.StopGameHandler)
	router.POST(constants.RouteJoin, limiters.middleware(), env.JoinGameHandler)
	router.POST(constants.RouteLeave, limiters.middleware(), env.LeaveGameHandler)
	router.POST(constants.RouteWord, limiters.middleware(), env.SubmitWordHandler)

	startServer(router)
}

func startServer(router *gin.Engine) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		util.LogInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			util.LogWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	util.LogInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		util.LogFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	util.LogInfo("Server shutdown complete")
}
