package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/communitybridge/pkg/bridge"
	"github.com/platinummonkey/communitybridge/pkg/groups"
	"github.com/platinummonkey/communitybridge/pkg/httputil"
	"github.com/platinummonkey/communitybridge/pkg/observability"
	"github.com/platinummonkey/communitybridge/pkg/storage"
)

// GroupHandlers answers group membership queries
type GroupHandlers struct {
	services func() *bridge.Service
}

// NewGroupHandlers creates group handlers over the live service
func NewGroupHandlers(services func() *bridge.Service) *GroupHandlers {
	return &GroupHandlers{services: services}
}

// RegisterRoutes registers group routes
func (h *GroupHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users/{userID}/groups", h.getUserGroups).Methods("GET")
	router.HandleFunc("/groups/{groupID}/users", h.getGroupUsers).Methods("GET")
}

// getUserGroups handles GET /v1/users/{userID}/groups
func (h *GroupHandlers) getUserGroups(w http.ResponseWriter, r *http.Request) {
	svc, ok := currentService(w, h.services)
	if !ok {
		return
	}
	userID, ok := httputil.PathParamOrError(w, r, "userID")
	if !ok {
		return
	}

	secondary, err := svc.SecondaryGroupsOf(r.Context(), userID)
	if err != nil {
		kind := storage.ConnectionFailure
		if k, ok := storage.KindOf(err); ok {
			kind = k
		}
		observability.FromContext(r.Context()).WithFields(logrus.Fields{
			"user_id": userID,
			"kind":    kind.String(),
		}).WithError(err).Warn("Secondary group lookup failed")
		httputil.WriteKindError(w, http.StatusBadGateway, kind.String(), err)
		return
	}
	if secondary == nil {
		secondary = []string{}
	}

	httputil.WriteSuccess(w, UserGroupsResponse{
		UserID:    userID,
		Primary:   svc.PrimaryGroupOf(r.Context(), userID),
		Secondary: secondary,
	})
}

// getGroupUsers handles GET /v1/groups/{groupID}/users?scope=
func (h *GroupHandlers) getGroupUsers(w http.ResponseWriter, r *http.Request) {
	svc, ok := currentService(w, h.services)
	if !ok {
		return
	}
	groupID, ok := httputil.PathParamOrError(w, r, "groupID")
	if !ok {
		return
	}
	scope, err := groups.ParseScope(httputil.QueryParam(r, "scope", ""))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	users := svc.UsersOfGroup(r.Context(), groupID, scope)
	if users == nil {
		users = []string{}
	}
	httputil.WriteSuccess(w, GroupUsersResponse{
		GroupID: groupID,
		Scope:   scope.String(),
		Users:   users,
	})
}
