// Package httputil holds the response and request helpers shared by handlers.
//
// Error bodies follow the partner-facing shape {"detail": "..."}:
//
//	httputil.WriteDetail(w, http.StatusBadRequest, "financial_year must be a year")
//	httputil.WriteForbidden(w)
//
// Path and query parameters:
//
//	matchID, err := httputil.ParsePathInt64(r, "match_id")
//	limit, err := httputil.ParseQueryInt(r, "limit", 100)
package httputil
