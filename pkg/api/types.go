package api

import "github.com/platinummonkey/communitybridge/pkg/identity"

// UserIDResponse is returned by the identity lookups
type UserIDResponse struct {
	UserID string `json:"user_id"`
}

// UUIDResponse is returned by the reverse lookup
type UUIDResponse struct {
	UserID string `json:"user_id"`
	UUID   string `json:"uuid"`
}

// UserGroupsResponse lists the groups a user belongs to
type UserGroupsResponse struct {
	UserID    string   `json:"user_id"`
	Primary   string   `json:"primary"`
	Secondary []string `json:"secondary"`
}

// GroupUsersResponse lists the members of a group
type GroupUsersResponse struct {
	GroupID string   `json:"group_id"`
	Scope   string   `json:"scope"`
	Users   []string `json:"users"`
}

// CacheStatsResponse reports the identity cache counters
type CacheStatsResponse struct {
	identity.CacheStats
	LinkingMethod string `json:"linking_method"`
}
