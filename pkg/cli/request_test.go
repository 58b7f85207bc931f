package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exportwins/winsmi/pkg/hawk"
)

type staticCredentials map[string]string

func (s staticCredentials) LookupCredentials(_ context.Context, id string) (*hawk.Credentials, error) {
	key, ok := s[id]
	if !ok {
		return nil, hawk.ErrCredentialsNotFound
	}
	return &hawk.Credentials{ID: id, Key: key, Algorithm: hawk.AlgorithmSHA256}, nil
}

// newHawkServer echoes the request body back with a signed response
func newHawkServer(t *testing.T, forgeResponse bool) *httptest.Server {
	t.Helper()
	receiver := hawk.NewReceiver(staticCredentials{"partner": "secret"}, nil, hawk.ReceiverOptions{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		session, err := receiver.Authenticate(r.Context(), r, body)
		if err != nil {
			w.Header().Set(hawk.WWWAuthenticateHeader, hawk.Scheme)
			http.Error(w, `{"detail":"Incorrect authentication credentials."}`, http.StatusUnauthorized)
			return
		}

		out := []byte(`{"method":"` + r.Method + `","body":"` + string(body) + `"}`)
		header, err := session.Respond(out, "application/json", "")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if forgeResponse {
			out = []byte(`{"tampered":true}`)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(hawk.ServerAuthorizationHeader, header)
		w.Write(out)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunRequest(t *testing.T) {
	srv := newHawkServer(t, false)

	output, err := captureStdout(t, func() error {
		return runRequest([]string{"--id", "partner", "--key", "secret", "--method", "post", "--data", "hello", srv.URL + "/data-flow/export-wins/"})
	})
	require.NoError(t, err)
	assert.Equal(t, `{"method":"POST","body":"hello"}`, strings.TrimSpace(output))
}

func TestRunRequest_CredentialsFromEnv(t *testing.T) {
	srv := newHawkServer(t, false)
	t.Setenv("HAWK_ID", "partner")
	t.Setenv("HAWK_KEY", "secret")

	_, err := captureStdout(t, func() error {
		return runRequest([]string{srv.URL + "/activity-stream/"})
	})
	require.NoError(t, err)
}

func TestRunRequest_Errors(t *testing.T) {
	srv := newHawkServer(t, false)

	t.Run("wrong key", func(t *testing.T) {
		_, err := captureStdout(t, func() error {
			return runRequest([]string{"--id", "partner", "--key", "wrong", srv.URL + "/activity-stream/"})
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv("HAWK_ID", "")
		t.Setenv("HAWK_KEY", "")
		err := runRequest([]string{srv.URL})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id and key are required")
	})

	t.Run("missing url", func(t *testing.T) {
		err := runRequest([]string{"--id", "partner", "--key", "secret"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "url is required")
	})
}

func TestRunRequest_TamperedResponse(t *testing.T) {
	srv := newHawkServer(t, true)

	_, err := captureStdout(t, func() error {
		return runRequest([]string{"--id", "partner", "--key", "secret", srv.URL + "/activity-stream/"})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "response verification failed")

	output, err := captureStdout(t, func() error {
		return runRequest([]string{"--id", "partner", "--key", "secret", "--skip-verify", srv.URL + "/activity-stream/"})
	})
	require.NoError(t, err)
	assert.Contains(t, output, "tampered")
}

func TestRunSign(t *testing.T) {
	srv := newHawkServer(t, false)
	target := srv.URL + "/data-hub/export-wins/42"

	output, err := captureStdout(t, func() error {
		return runSign([]string{"--id", "partner", "--key", "secret", target})
	})
	require.NoError(t, err)

	header := strings.TrimSpace(strings.TrimPrefix(output, hawk.AuthorizationHeader+": "))
	assert.True(t, strings.HasPrefix(header, "Hawk id=\"partner\""))

	// The printed header authenticates a plain request
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	req.Header.Set(hawk.AuthorizationHeader, header)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0644))

	got, err := readData("@" + path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	got, err = readData("inline")
	require.NoError(t, err)
	assert.Equal(t, "inline", string(got))

	got, err = readData("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunCheckCredentials(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`credentials:
  - id: data-flow
    key: k1
    scopes: [data-flow]
  - id: ops
    key: k2
    scopes: ["*"]
`), 0644))

	output, err := captureStdout(t, func() error {
		return runCheckCredentials([]string{"--file", good})
	})
	require.NoError(t, err)
	assert.Contains(t, output, "2 credentials")
	assert.Contains(t, output, "data-flow")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`credentials:
  - id: nope
    key: k
    scopes: [admin]
`), 0644))
	err = runCheckCredentials([]string{"--file", bad})
	assert.Error(t, err)
}
