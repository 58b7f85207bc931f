// Package nonce provides Hawk replay detection stores.
//
// A nonce is remembered under the key hawk:<credential id>:<nonce> until
// its request timestamp falls out of the Hawk skew window, so a request
// stamped up to skew in the future is held for nearly twice the skew.
// Any request reusing a remembered nonce is a replay. RedisStore shares
// the window across instances; MemoryStore is for single-instance
// deployments and tests.
package nonce
