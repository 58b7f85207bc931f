package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exportwins/winsmi/pkg/hawk"
)

const sampleFile = `
credentials:
  - id: activity-stream
    key: as-secret
    scopes: [activity-stream]
  - id: data-flow
    key: df-secret
    description: Data Flow pipeline
    scopes: [data-flow, data-hub]
  - id: admin
    key: admin-secret
    scopes: ["*"]
`

func TestParse(t *testing.T) {
	creds, err := Parse([]byte(sampleFile))
	require.NoError(t, err)
	require.Len(t, creds, 3)
	assert.Equal(t, "Data Flow pipeline", creds[1].Description)
	assert.Equal(t, []Scope{ScopeDataFlow, ScopeDataHub}, creds[1].Scopes)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"not yaml":      "credentials: [",
		"missing key":   "credentials:\n  - id: a\n    scopes: [data-hub]\n",
		"missing id":    "credentials:\n  - key: k\n    scopes: [data-hub]\n",
		"no scopes":     "credentials:\n  - id: a\n    key: k\n",
		"unknown scope": "credentials:\n  - id: a\n    key: k\n    scopes: [everything]\n",
		"duplicate id":  "credentials:\n  - id: a\n    key: k\n    scopes: [data-hub]\n  - id: a\n    key: j\n    scopes: [data-hub]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestStore_LookupCredentials(t *testing.T) {
	creds, err := Parse([]byte(sampleFile))
	require.NoError(t, err)
	store, err := NewStore(creds)
	require.NoError(t, err)

	c, err := store.LookupCredentials(context.Background(), "activity-stream")
	require.NoError(t, err)
	assert.Equal(t, "as-secret", c.Key)
	assert.Equal(t, hawk.AlgorithmSHA256, c.Algorithm)

	_, err = store.LookupCredentials(context.Background(), "nobody")
	assert.ErrorIs(t, err, hawk.ErrCredentialsNotFound)
}

func TestStore_HasScope(t *testing.T) {
	creds, err := Parse([]byte(sampleFile))
	require.NoError(t, err)
	store, err := NewStore(creds)
	require.NoError(t, err)

	assert.True(t, store.HasScope("activity-stream", ScopeActivityStream))
	assert.False(t, store.HasScope("activity-stream", ScopeDataHub))
	assert.True(t, store.HasScope("data-flow", ScopeDataHub))
	assert.True(t, store.HasScope("admin", ScopeDataFlow))
	assert.False(t, store.HasScope("nobody", ScopeActivityStream))
}

func TestStore_ReplaceKeepsOldSetOnError(t *testing.T) {
	store, err := NewStore([]Credential{{ID: "a", Key: "k", Scopes: []Scope{ScopeDataHub}}})
	require.NoError(t, err)

	err = store.Replace([]Credential{{ID: "b"}})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Equal(t, 1, store.Len())
	assert.True(t, store.HasScope("a", ScopeDataHub))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0600))

	creds, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, creds, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
