// Package api assembles the partner-facing HTTP API.
//
// Routes and the credential scope each one requires:
//
//	GET /activity-stream/                   activity-stream
//	GET /data-hub/export-wins/{match_id}    data-hub
//	GET /data-flow/export-wins/             data-flow
//
// Every route runs behind middleware.HawkAuth. Probes and metrics are
// served separately by NewHealthMux on the health port.
package api
