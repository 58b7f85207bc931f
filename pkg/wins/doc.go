// Package wins serves export win records to partner systems.
//
// Three read-only surfaces share one Store:
//
//   - GET /activity-stream/ pages through every win as Activity Streams 2.0
//     Create activities, oldest first, with an opaque next cursor.
//   - GET /data-hub/export-wins/{match_id} lists the wins linked to a Data Hub company match.
//   - GET /data-flow/export-wins/?financial_year=YYYY exports one UK financial year.
//
// PostgresStore reads the reporting database; MemoryStore backs tests and local runs.
package wins
