// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, map[string]string{"user_id": id})
//	httputil.WriteBadRequest(w, "unknown scope")
//	httputil.WriteKindError(w, http.StatusBadGateway, "schema_mismatch", err)
//
// # Request Helpers
//
//	userID, ok := httputil.PathParamOrError(w, r, "userID")
//	scope := httputil.QueryParam(r, "scope", "both")
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.RecoveryMiddleware(log),
//		httputil.LoggingMiddleware(log),
//	)(router)
package httputil
