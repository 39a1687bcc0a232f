package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/communitybridge/pkg/bridge"
	"github.com/platinummonkey/communitybridge/pkg/httputil"
	"github.com/platinummonkey/communitybridge/pkg/observability"
)

// IdentityHandlers answers player to user id lookups
type IdentityHandlers struct {
	services func() *bridge.Service
}

// NewIdentityHandlers creates identity handlers over the live service
func NewIdentityHandlers(services func() *bridge.Service) *IdentityHandlers {
	return &IdentityHandlers{services: services}
}

// RegisterRoutes registers identity routes
func (h *IdentityHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/identities/{identifier}", h.getUserID).Methods("GET")
	router.HandleFunc("/players/user", h.getPlayerUserID).Methods("GET")
	router.HandleFunc("/users/{userID}/uuid", h.getUUID).Methods("GET")
	router.HandleFunc("/cache/players", h.removeFromCache).Methods("DELETE")
	router.HandleFunc("/cache/stats", h.cacheStats).Methods("GET")
}

// getUserID handles GET /v1/identities/{identifier}
func (h *IdentityHandlers) getUserID(w http.ResponseWriter, r *http.Request) {
	svc, ok := currentService(w, h.services)
	if !ok {
		return
	}
	identifier, ok := httputil.PathParamOrError(w, r, "identifier")
	if !ok {
		return
	}

	userID := svc.GetUserID(r.Context(), identifier)
	if userID == "" {
		httputil.WriteNotFoundError(w, "no user is linked to "+identifier)
		return
	}
	httputil.WriteSuccess(w, UserIDResponse{UserID: userID})
}

// getPlayerUserID handles GET /v1/players/user?uuid=&name=
func (h *IdentityHandlers) getPlayerUserID(w http.ResponseWriter, r *http.Request) {
	svc, ok := currentService(w, h.services)
	if !ok {
		return
	}
	player := bridge.Player{
		UUID: httputil.QueryParam(r, "uuid", ""),
		Name: httputil.QueryParam(r, "name", ""),
	}
	if player.UUID == "" && player.Name == "" {
		httputil.WriteBadRequest(w, "uuid or name is required")
		return
	}

	userID := svc.GetUserIDForPlayer(r.Context(), player)
	if userID == "" {
		observability.FromContext(r.Context()).WithFields(logrus.Fields{
			"uuid": player.UUID,
			"name": player.Name,
		}).Debug("Player has no linked user")
		httputil.WriteNotFoundError(w, "player is not linked")
		return
	}
	httputil.WriteSuccess(w, UserIDResponse{UserID: userID})
}

// getUUID handles GET /v1/users/{userID}/uuid
func (h *IdentityHandlers) getUUID(w http.ResponseWriter, r *http.Request) {
	svc, ok := currentService(w, h.services)
	if !ok {
		return
	}
	userID, ok := httputil.PathParamOrError(w, r, "userID")
	if !ok {
		return
	}

	uuid := svc.GetUUID(r.Context(), userID)
	if uuid == "" {
		httputil.WriteNotFoundError(w, "user "+userID+" has no linked player")
		return
	}
	httputil.WriteSuccess(w, UUIDResponse{UserID: userID, UUID: uuid})
}

// removeFromCache handles DELETE /v1/cache/players?uuid=&name=
func (h *IdentityHandlers) removeFromCache(w http.ResponseWriter, r *http.Request) {
	svc, ok := currentService(w, h.services)
	if !ok {
		return
	}
	uuid := httputil.QueryParam(r, "uuid", "")
	name := httputil.QueryParam(r, "name", "")
	if uuid == "" && name == "" {
		httputil.WriteBadRequest(w, "uuid or name is required")
		return
	}

	svc.RemoveFromCache(r.Context(), uuid, name)
	httputil.WriteNoContent(w)
}

// cacheStats handles GET /v1/cache/stats
func (h *IdentityHandlers) cacheStats(w http.ResponseWriter, r *http.Request) {
	svc, ok := currentService(w, h.services)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, CacheStatsResponse{
		CacheStats:    svc.CacheStats(),
		LinkingMethod: svc.Config().LinkingMethod().String(),
	})
}
