package scenario

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/pulsewave/pkg/telemetry"
	"github.com/cuemby/pulsewave/pkg/types"
)

func newTestHub(t *testing.T) *telemetry.Hub {
	t.Helper()
	hub := telemetry.NewHub(100, telemetry.MemGuardConfig{LimitBytes: 1 << 30, AutoDisable: false}, telemetry.DefaultPoolConfig())
	t.Cleanup(hub.Stop)
	return hub
}

func TestExecutorRunSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	sc := types.Scenario{
		Name:   "checkout",
		Weight: 1,
		Steps: []types.Step{
			{
				Name:       "get",
				Request:    types.Request{Method: http.MethodGet, Path: "/items"},
				Extractors: []types.Extractor{{Kind: types.ExtractorJSONPath, Name: "id", Path: "$.id"}},
				Assertions: []types.Assertion{{Kind: types.AssertionStatusCode, StatusCode: 200}},
			},
		},
	}

	exec := NewExecutor(srv.Client(), srv.URL, nil, types.RequestDefaults{}, newTestHub(t))
	result := exec.Run(context.Background(), sc, nil)

	require.True(t, result.OK)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, 200, result.Steps[0].Status)
	assert.Equal(t, 1, result.Steps[0].AssertionsPassed)
}

func TestExecutorRunFailsAtStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sc := types.Scenario{
		Name: "checkout",
		Steps: []types.Step{
			{Name: "first", Request: types.Request{Method: http.MethodGet, Path: "/a"}},
			{
				Name:       "second",
				Request:    types.Request{Method: http.MethodGet, Path: "/b"},
				Assertions: []types.Assertion{{Kind: types.AssertionStatusCode, StatusCode: 200}},
			},
			{Name: "third", Request: types.Request{Method: http.MethodGet, Path: "/c"}},
		},
	}

	exec := NewExecutor(srv.Client(), srv.URL, nil, types.RequestDefaults{}, newTestHub(t))
	result := exec.Run(context.Background(), sc, nil)

	assert.False(t, result.OK)
	require.NotNil(t, result.FailedAtStep)
	assert.Equal(t, 1, *result.FailedAtStep)
	assert.Len(t, result.Steps, 2)
}

func TestExecutorRetriesOnFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sc := types.Scenario{
		Name:  "flaky",
		Retry: &types.RetryPolicy{Count: 3, Delay: time.Millisecond},
		Steps: []types.Step{
			{
				Name:       "get",
				Request:    types.Request{Method: http.MethodGet, Path: "/x"},
				Assertions: []types.Assertion{{Kind: types.AssertionStatusCode, StatusCode: 200}},
			},
		},
	}

	exec := NewExecutor(srv.Client(), srv.URL, nil, types.RequestDefaults{}, newTestHub(t))
	result := exec.Run(context.Background(), sc, nil)

	assert.True(t, result.OK)
	assert.Equal(t, 3, attempts)
}

func TestExecutorSubstitutesVariablesInPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ds := &fakeDataSource{rows: []map[string]string{{"user_id": "99"}}}

	sc := types.Scenario{
		Name: "profile",
		Steps: []types.Step{
			{Name: "get", Request: types.Request{Method: http.MethodGet, Path: "/users/${user_id}"}},
		},
	}

	exec := NewExecutor(srv.Client(), srv.URL, nil, types.RequestDefaults{}, newTestHub(t))
	exec.Run(context.Background(), sc, ds)

	assert.Equal(t, "/users/99", gotPath)
}

func TestExecutorFallsBackToDefaultMethodWhenStepOmitsIt(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sc := types.Scenario{
		Name:  "ping",
		Steps: []types.Step{{Name: "get", Request: types.Request{Path: "/"}}},
	}

	exec := NewExecutor(srv.Client(), srv.URL, nil, types.RequestDefaults{Method: http.MethodPost}, newTestHub(t))
	exec.Run(context.Background(), sc, nil)

	assert.Equal(t, http.MethodPost, gotMethod)
}

func TestExecutorFallsBackToDefaultJSONPayloadWhenBodyEmpty(t *testing.T) {
	var gotBody, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sc := types.Scenario{
		Name:  "submit",
		Steps: []types.Step{{Name: "post", Request: types.Request{Method: http.MethodPost, Path: "/"}}},
	}

	exec := NewExecutor(srv.Client(), srv.URL, nil, types.RequestDefaults{JSONPayload: `{"ok":true}`}, newTestHub(t))
	exec.Run(context.Background(), sc, nil)

	assert.Equal(t, `{"ok":true}`, gotBody)
	assert.Equal(t, "application/json", gotContentType)
}

func TestExecutorStepBodyTakesPrecedenceOverDefaultPayload(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sc := types.Scenario{
		Name: "submit",
		Steps: []types.Step{
			{Name: "post", Request: types.Request{Method: http.MethodPost, Path: "/", Body: `{"custom":1}`}},
		},
	}

	exec := NewExecutor(srv.Client(), srv.URL, nil, types.RequestDefaults{JSONPayload: `{"ok":true}`}, newTestHub(t))
	exec.Run(context.Background(), sc, nil)

	assert.Equal(t, `{"custom":1}`, gotBody)
}

type fakeDataSource struct {
	rows []map[string]string
	i    int
}

func (f *fakeDataSource) Next() (map[string]string, bool) {
	if f.i >= len(f.rows) {
		return nil, false
	}
	row := f.rows[f.i]
	f.i++
	return row, true
}
