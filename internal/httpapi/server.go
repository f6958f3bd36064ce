// Package httpapi exposes the marketplace over REST and maps domain errors
// onto HTTP statuses in one place.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/loppet/internal/identity"
	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ImageUploader stores a batch of raw image files and returns public URLs.
type ImageUploader interface {
	UploadBatch(ctx context.Context, files [][]byte) ([]string, error)
}

// Dependencies carries everything the HTTP layer delegates to.
type Dependencies struct {
	Logger   *zap.Logger
	Accounts *loppet.AccountService
	Listings *loppet.ListingService
	Messages *loppet.MessageService
	Projects *loppet.ProjectService
	Races    *loppet.RaceService
	Verifier identity.Verifier
	Sessions *identity.Sessions
	Uploader ImageUploader
}

// Server wires the gin router over the domain services.
type Server struct {
	logger   *zap.Logger
	config   Config
	accounts *loppet.AccountService
	listings *loppet.ListingService
	messages *loppet.MessageService
	projects *loppet.ProjectService
	races    *loppet.RaceService
	verifier identity.Verifier
	sessions *identity.Sessions
	uploader ImageUploader
	admins   map[string]struct{}
}

// NewServer validates the wiring and returns a Server.
func NewServer(config Config, deps Dependencies) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger dependency is nil")
	}
	if deps.Accounts == nil || deps.Listings == nil || deps.Messages == nil || deps.Projects == nil || deps.Races == nil {
		return nil, fmt.Errorf("service dependency is nil")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("identity verifier dependency is nil")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session dependency is nil")
	}
	admins := make(map[string]struct{}, len(config.AdminEmails))
	for _, email := range config.AdminEmails {
		normalized := strings.ToLower(strings.TrimSpace(email))
		if normalized != "" {
			admins[normalized] = struct{}{}
		}
	}
	return &Server{
		logger:   deps.Logger,
		config:   config,
		accounts: deps.Accounts,
		listings: deps.Listings,
		messages: deps.Messages,
		projects: deps.Projects,
		races:    deps.Races,
		verifier: deps.Verifier,
		sessions: deps.Sessions,
		uploader: deps.Uploader,
		admins:   admins,
	}, nil
}

// Router builds the gin engine with every route registered.
func (server *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/auth/google", server.handleGoogleExchange)
	router.GET("/auth/me", server.requireAuth(), server.handleCurrentAccount)

	router.GET("/ads", server.optionalAuth(), server.handleSearchListings)
	router.GET("/ads/:id", server.optionalAuth(), server.handleGetListing)
	router.POST("/ads", server.requireAuth(), server.handleCreateListing)
	router.PUT("/ads/:id", server.requireAuth(), server.handleUpdateListing)
	router.DELETE("/ads/:id", server.requireAuth(), server.handleDeleteListing)
	router.POST("/ads/:id/favorite", server.requireAuth(), server.handleToggleFavorite)

	router.POST("/messages/send", server.requireAuth(), server.handleSendMessage)
	router.GET("/messages/conversations", server.requireAuth(), server.handleInbox)
	router.GET("/messages/conversations/:id/messages", server.requireAuth(), server.handleThread)

	router.GET("/races", server.handleListRaces)
	router.GET("/races/upcoming", server.handleUpcomingRaces)
	router.GET("/races/:id", server.handleGetRace)

	router.GET("/projects", server.handleListApprovedProjects)
	router.POST("/projects", server.requireAuth(), server.handleCreateProject)
	router.GET("/projects/mine", server.requireAuth(), server.handleListMyProjects)
	router.GET("/projects/:id", server.optionalAuth(), server.handleGetProject)
	router.GET("/projects/:id/members", server.handleProjectMembers)
	router.POST("/projects/:id/join", server.requireAuth(), server.handleJoinProject)
	router.DELETE("/projects/:id/leave", server.requireAuth(), server.handleLeaveProject)

	admin := router.Group("/admin", server.requireAuth(), server.requireAdmin())
	admin.GET("/projects/pending", server.handlePendingProjects)
	admin.POST("/projects/:id/review", server.handleReviewProject)

	router.GET("/users/:id", server.handlePublicProfile)
	router.PUT("/users/me", server.requireAuth(), server.handleUpdateProfile)
	router.GET("/users/me/dashboard", server.requireAuth(), server.handleDashboard)
	router.GET("/users/me/favorites", server.requireAuth(), server.handleListFavorites)

	router.POST("/uploads/images", server.requireAuth(), server.handleUploadImages)

	return router
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.config.ListenAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("loppetd listening", zap.String("addr", server.config.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
