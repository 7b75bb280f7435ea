/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package gateway

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/vinyldash/vinylgw/httpserver/middleware"
	"github.com/vinyldash/vinylgw/restapi"
)

const defaultCollectionPerPage = 50

func defaultPerPage(maxPerPage int) int {
	return min(defaultCollectionPerPage, maxPerPage)
}

// intQueryParam parses an optional integer query parameter. maxVal <= 0 means there is no upper bound.
func (h *Handler) intQueryParam(
	rw http.ResponseWriter, r *http.Request, name string, defaultVal, minVal, maxVal int,
) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal, true
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < minVal || (maxVal > 0 && val > maxVal) {
		msg := fmt.Sprintf("%s must be an integer not less than %d.", name, minVal)
		if maxVal > 0 {
			msg = fmt.Sprintf("%s must be an integer between %d and %d.", name, minVal, maxVal)
		}
		h.respondInvalidParameter(rw, r, name, msg)
		return 0, false
	}
	return val, true
}

func (h *Handler) requiredQueryParam(rw http.ResponseWriter, r *http.Request, name string) (string, bool) {
	val := strings.TrimSpace(r.URL.Query().Get(name))
	if val == "" {
		h.respondInvalidParameter(rw, r, name, name+" is required.")
		return "", false
	}
	return val, true
}

func (h *Handler) respondInvalidParameter(rw http.ResponseWriter, r *http.Request, name, msg string) {
	apiErr := restapi.NewInvalidParameterError(ErrorDomain, name, msg)
	restapi.RespondError(rw, http.StatusBadRequest, apiErr, middleware.GetLoggerFromContext(r.Context()))
}

func isPositiveInt(s string) bool {
	if s == "" || len(s) > 18 {
		return false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return err == nil && n > 0 && strconv.FormatInt(n, 10) == s
}

func isSongID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// normalizeSearchTerm makes cache keys of searches insensitive to case and extra spaces.
func normalizeSearchTerm(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
