// Package credentials holds the Hawk credentials of partner systems and the
// API scopes each one may use.
//
// Credentials are loaded from a YAML file:
//
//	credentials:
//	  - id: activity-stream-prod
//	    key: <shared secret>
//	    scopes: [activity-stream]
//	  - id: data-flow
//	    key: <shared secret>
//	    scopes: [data-flow, data-hub]
//
// Watcher reloads the file when it changes; a bad file keeps the previous set.
package credentials
