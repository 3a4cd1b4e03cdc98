package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gatherly-backend/internal/repository"
)

// Repositories bundles the data-access dependencies of the router.
type Repositories struct {
	Groups   *repository.GroupRepository
	Hangouts *repository.HangoutRepository
	Series   *repository.SeriesRepository
	Offers   *repository.OfferRepository
	Users    *repository.UserRepository
	Sync     *repository.PointerSynchronizer
}

// Router builds the HTTP handler tree.
type Router struct {
	repos         Repositories
	logger        *zap.Logger
	enableMetrics bool
}

// NewRouter creates a router.
func NewRouter(repos Repositories, enableMetrics bool, logger *zap.Logger) *Router {
	return &Router{repos: repos, logger: logger, enableMetrics: enableMetrics}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if rt.enableMetrics {
		router.Handle("/metrics", promhttp.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		groupHandler := NewGroupHandler(rt.repos.Groups, rt.logger)
		r.Route("/groups", func(r chi.Router) {
			r.Post("/", groupHandler.Create)
			r.Get("/{groupID}", groupHandler.Get)
			r.Put("/{groupID}", groupHandler.Update)
			r.Delete("/{groupID}", groupHandler.Delete)
			r.Get("/{groupID}/feed", groupHandler.Feed)
			r.Post("/{groupID}/members", groupHandler.AddMember)
			r.Get("/{groupID}/members", groupHandler.ListMembers)
			r.Delete("/{groupID}/members/{userID}", groupHandler.RemoveMember)
			r.Post("/{groupID}/invites", groupHandler.CreateInvite)
			r.Delete("/{groupID}/invites/{code}", groupHandler.DeleteInvite)
			r.Post("/{groupID}/join", groupHandler.Join)
			r.Post("/{groupID}/seasons", groupHandler.CreateSeason)
			r.Get("/{groupID}/seasons", groupHandler.ListSeasons)
		})

		hangoutHandler := NewHangoutHandler(rt.repos.Hangouts, rt.repos.Sync, rt.logger)
		r.Route("/hangouts", func(r chi.Router) {
			r.Post("/", hangoutHandler.Create)
			r.Get("/{hangoutID}", hangoutHandler.Detail)
			r.Put("/{hangoutID}", hangoutHandler.Update)
			r.Delete("/{hangoutID}", hangoutHandler.Delete)
			r.Post("/{hangoutID}/votes", hangoutHandler.Vote)
			r.Put("/{hangoutID}/interest", hangoutHandler.SetInterest)
			r.Post("/{hangoutID}/resync", hangoutHandler.Resync)
		})

		seriesHandler := NewSeriesHandler(rt.repos.Series, rt.repos.Sync, rt.logger)
		r.Route("/series", func(r chi.Router) {
			r.Post("/", seriesHandler.Create)
			r.Get("/lookup", seriesHandler.Get)
			r.Get("/{seriesID}", seriesHandler.Get)
			r.Put("/{seriesID}", seriesHandler.Update)
			r.Delete("/{seriesID}", seriesHandler.Delete)
			r.Post("/{seriesID}/ideas", seriesHandler.AddIdea)
			r.Get("/{seriesID}/ideas", seriesHandler.ListIdeas)
			r.Delete("/{seriesID}/ideas/{memberID}", seriesHandler.RemoveIdea)
			r.Post("/{seriesID}/resync", seriesHandler.Resync)
		})

		offerHandler := NewOfferHandler(rt.repos.Offers, rt.logger)
		r.Route("/offers", func(r chi.Router) {
			r.Post("/", offerHandler.Create)
			r.Get("/{offerID}", offerHandler.Get)
			r.Post("/{offerID}/claims", offerHandler.Claim)
			r.Post("/{offerID}/complete", offerHandler.Complete)
			r.Post("/{offerID}/cancel", offerHandler.Cancel)
		})

		userHandler := NewUserHandler(rt.repos.Users, rt.logger)
		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Create)
			r.Get("/{userID}", userHandler.Get)
			r.Get("/{userID}/groups", groupHandler.GroupsForUser)
			r.Delete("/{userID}/tokens", userHandler.RevokeAllTokens)
		})
		r.Get("/calendar/{token}", userHandler.Calendar)
	})

	return router
}
