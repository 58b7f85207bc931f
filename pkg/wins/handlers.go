package wins

import (
	"net/http"
	"net/url"
	"time"

	"github.com/exportwins/winsmi/pkg/httputil"
	"github.com/exportwins/winsmi/pkg/observability"
)

// DefaultPageSize is the number of activities per activity stream page
const DefaultPageSize = 100

// Handler serves the partner endpoints
type Handler struct {
	store    Store
	pageSize int
	baseURL  string
}

// HandlerOptions configures a Handler
type HandlerOptions struct {
	PageSize int
	// BaseURL is the public origin used in next links; empty uses the request host
	BaseURL string
}

// NewHandler creates handlers reading from store
func NewHandler(store Store, opts HandlerOptions) *Handler {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Handler{store: store, pageSize: opts.PageSize, baseURL: opts.BaseURL}
}

const (
	activityStreamsContext = "https://www.w3.org/ns/activitystreams"
	winType                = "dit:exportWins:Win"
)

// CollectionPage is an Activity Streams 2.0 OrderedCollectionPage
type CollectionPage struct {
	Context      string     `json:"@context"`
	Type         string     `json:"type"`
	ID           string     `json:"id"`
	OrderedItems []Activity `json:"orderedItems"`
	Next         string     `json:"next,omitempty"`
}

// Activity announces the creation of one win
type Activity struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Published string      `json:"published"`
	Object    WinDocument `json:"object"`
}

// WinDocument is the activity object describing a win
type WinDocument struct {
	ID        string   `json:"id"`
	Type      []string `json:"type"`
	Published string   `json:"published"`
	Win       Win      `json:"dit:exportWins:Win"`
}

func newActivity(w Win) Activity {
	objectID := winType + ":" + w.ID.String()
	published := w.CreatedAt.UTC().Format(time.RFC3339Nano)
	return Activity{
		ID:        objectID + ":Create",
		Type:      "Create",
		Published: published,
		Object: WinDocument{
			ID:        objectID,
			Type:      []string{"Document", winType},
			Published: published,
			Win:       w,
		},
	}
}

// ActivityStream serves GET /activity-stream/?cursor=...
func (h *Handler) ActivityStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cursor *Cursor
	if token := httputil.ParseQueryString(r, "cursor", ""); token != "" {
		c, err := DecodeCursor(token)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid cursor.")
			return
		}
		cursor = c
	}

	page, err := h.store.ListAfter(ctx, cursor, h.pageSize)
	if err != nil {
		observability.FromContext(ctx).WithError(err).Error("Failed to list wins for activity stream")
		httputil.WriteInternalError(w)
		return
	}

	resp := CollectionPage{
		Context:      activityStreamsContext,
		Type:         "OrderedCollectionPage",
		ID:           h.pageURL(r, cursor),
		OrderedItems: make([]Activity, 0, len(page)),
	}
	for _, win := range page {
		resp.OrderedItems = append(resp.OrderedItems, newActivity(win))
	}
	if len(page) == h.pageSize {
		resp.Next = h.pageURL(r, CursorAfter(page[len(page)-1]))
	}

	httputil.WriteSuccess(w, resp)
}

func (h *Handler) pageURL(r *http.Request, cursor *Cursor) string {
	u := url.URL{Path: r.URL.Path}
	if base, err := url.Parse(h.baseURL); err == nil && h.baseURL != "" {
		u.Scheme, u.Host = base.Scheme, base.Host
	} else {
		u.Scheme, u.Host = "http", r.Host
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	if cursor != nil {
		u.RawQuery = url.Values{"cursor": {cursor.Encode()}}.Encode()
	}
	return u.String()
}

// DataHubWins serves GET /data-hub/export-wins/{match_id}
func (h *Handler) DataHubWins(w http.ResponseWriter, r *http.Request) {
	matchID, err := httputil.ParsePathInt64(r, "match_id")
	if err != nil || matchID <= 0 {
		httputil.WriteBadRequest(w, "match_id must be a positive integer.")
		return
	}

	wins, err := h.store.ListByMatchIDs(r.Context(), []int64{matchID})
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to list wins by match id")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, wins)
}

// DataFlowResponse is the Data Flow export for one financial year
type DataFlowResponse struct {
	FinancialYear string `json:"financial_year"`
	Results       []Win  `json:"results"`
}

// DataFlowWins serves GET /data-flow/export-wins/?financial_year=YYYY.
// Without the parameter the current financial year is exported.
func (h *Handler) DataFlowWins(w http.ResponseWriter, r *http.Request) {
	fy, err := httputil.ParseQueryInt(r, "financial_year", FinancialYear(time.Now()))
	if err != nil || fy < 2000 || fy > 9998 {
		httputil.WriteBadRequest(w, "financial_year must be a four digit year.")
		return
	}

	wins, err := h.store.ListByFinancialYear(r.Context(), fy)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to list wins by financial year")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, DataFlowResponse{FinancialYear: FinancialYearLabel(fy), Results: wins})
}
