package api

import "net/http"

// statusForConsensusError maps any consensus admission error to 400: the
// caller sent a request the node cannot currently accept, per spec.md §7.
func statusForConsensusError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return http.StatusBadRequest
}
