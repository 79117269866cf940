// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Handlers use these helpers instead of writing raw http.ResponseWriter calls,
// so every endpoint answers with the same JSON envelope and the same mapping
// from apperr kinds to status codes.
package httputil
