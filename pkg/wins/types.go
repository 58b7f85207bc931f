package wins

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCursor is returned for cursors this service did not issue
var ErrInvalidCursor = errors.New("invalid cursor")

// Win is one recorded export win
type Win struct {
	ID                       uuid.UUID `json:"id"`
	MatchID                  int64     `json:"match_id"`
	CompanyName              string    `json:"company_name"`
	Country                  string    `json:"country"`
	Sector                   string    `json:"sector"`
	Date                     time.Time `json:"date"`
	TotalExpectedExportValue int64     `json:"total_expected_export_value"`
	Confirmed                bool      `json:"confirmed"`
	CreatedAt                time.Time `json:"created_at"`
}

// Store reads wins for the partner endpoints
type Store interface {
	// ListAfter returns up to limit wins ordered by (CreatedAt, ID), strictly after cursor.
	// A nil cursor starts from the beginning.
	ListAfter(ctx context.Context, cursor *Cursor, limit int) ([]Win, error)

	// ListByMatchIDs returns the wins linked to any of the Data Hub match ids
	ListByMatchIDs(ctx context.Context, matchIDs []int64) ([]Win, error)

	// ListByFinancialYear returns the wins dated inside financial year fy
	ListByFinancialYear(ctx context.Context, fy int) ([]Win, error)
}

// Cursor marks a position in the (CreatedAt, ID) ordering
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorAfter returns the cursor positioned on w
func CursorAfter(w Win) *Cursor {
	return &Cursor{CreatedAt: w.CreatedAt, ID: w.ID}
}

// Before reports whether c sorts before w
func (c *Cursor) Before(w Win) bool {
	if !c.CreatedAt.Equal(w.CreatedAt) {
		return c.CreatedAt.Before(w.CreatedAt)
	}
	return strings.Compare(c.ID.String(), w.ID.String()) < 0
}

// Encode renders the cursor as an opaque URL-safe token
func (c *Cursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixMicro(), 10) + "_" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by Encode
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	micros, id, ok := strings.Cut(string(raw), "_")
	if !ok {
		return nil, ErrInvalidCursor
	}
	us, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return &Cursor{CreatedAt: time.UnixMicro(us).UTC(), ID: parsed}, nil
}
