package controllers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mapmystandards/a3e/modules/standards/presentation/controllers"
	"github.com/mapmystandards/a3e/modules/standards/services"
	"github.com/mapmystandards/a3e/pkg/middleware"
)

const testToken = "test-token"

func newAPIRouter(t *testing.T, svc *services.StandardsService) *mux.Router {
	t.Helper()
	t.Setenv("API_TOKENS", testToken)

	r := mux.NewRouter()
	controllers.NewStandardsAPIController(svc).Register(r)
	return r
}

func doJSON(t *testing.T, router *mux.Router, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type errorEnvelope struct {
	Error string            `json:"error"`
	Code  string            `json:"code"`
	Meta  map[string]string `json:"meta"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestAPI_RejectsMissingToken(t *testing.T) {
	router := newAPIRouter(t, services.NewStandardsService(nil, services.ImportLimits{}))

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/standards"},
		{http.MethodGet, "/api/standards/hlc"},
		{http.MethodGet, "/api/standards/hlc/items"},
		{http.MethodPost, "/api/standards/hlc/import"},
	} {
		rec := doJSON(t, router, tc.method, tc.path, "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
		env := decodeError(t, rec)
		require.Equal(t, "STD_UNAUTHORIZED", env.Code)
	}
}

func TestAPI_RejectsWrongToken(t *testing.T) {
	router := newAPIRouter(t, services.NewStandardsService(nil, services.ImportLimits{}))

	rec := doJSON(t, router, http.MethodGet, "/api/standards", "not-the-token", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestImport_RejectsMalformedJSON(t *testing.T) {
	router := newAPIRouter(t, services.NewStandardsService(nil, services.ImportLimits{}))

	rec := doJSON(t, router, http.MethodPost, "/api/standards/hlc/import", testToken, `{"name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	require.Equal(t, "STD_INVALID_BODY", env.Code)
	require.NotEmpty(t, env.Meta["request_id"])
}

func TestImport_RejectsUnknownFields(t *testing.T) {
	router := newAPIRouter(t, services.NewStandardsService(nil, services.ImportLimits{}))

	body := `{"name":"HLC","nodes":[{"code":"1","title":"One"}],"bogus":true}`
	rec := doJSON(t, router, http.MethodPost, "/api/standards/hlc/import", testToken, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "STD_INVALID_BODY", decodeError(t, rec).Code)
}

func TestImport_RejectsEmptyNodes(t *testing.T) {
	router := newAPIRouter(t, services.NewStandardsService(nil, services.ImportLimits{}))

	rec := doJSON(t, router, http.MethodPost, "/api/standards/hlc/import", testToken, `{"name":"HLC","nodes":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "STD_INVALID_BODY", decodeError(t, rec).Code)
}

func TestImport_RejectsMissingName(t *testing.T) {
	router := newAPIRouter(t, services.NewStandardsService(nil, services.ImportLimits{}))

	rec := doJSON(t, router, http.MethodPost, "/api/standards/hlc/import", testToken, `{"nodes":[{"code":"1","title":"One"}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "STD_INVALID_BODY", decodeError(t, rec).Code)
}

func TestImport_RejectsKeyMismatch(t *testing.T) {
	router := newAPIRouter(t, services.NewStandardsService(nil, services.ImportLimits{}))

	body := `{"key":"other","name":"HLC","nodes":[{"code":"1","title":"One"}]}`
	rec := doJSON(t, router, http.MethodPost, "/api/standards/hlc/import", testToken, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "STD_KEY_MISMATCH", decodeError(t, rec).Code)
}

func TestImport_MatchingBodyKeyIsAccepted(t *testing.T) {
	router := newAPIRouter(t, services.NewStandardsService(nil, services.ImportLimits{}))

	// duplicate codes fail during resolution, after the key check passed
	body := `{"key":"hlc","name":"HLC","nodes":[{"code":"1","title":"One"},{"code":"1","title":"One again"}]}`
	rec := doJSON(t, router, http.MethodPost, "/api/standards/hlc/import", testToken, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "STD_DUPLICATE_CODE", decodeError(t, rec).Code)
}

func TestImport_ValidationErrorCodes(t *testing.T) {
	router := newAPIRouter(t, services.NewStandardsService(nil, services.ImportLimits{MaxDepth: 2}))

	for _, tc := range []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{
			name:   "unknown parent",
			body:   `{"name":"HLC","nodes":[{"code":"1.1","title":"Child","parentCode":"1"}]}`,
			status: http.StatusBadRequest,
			code:   "STD_PARENT_NOT_FOUND",
		},
		{
			name:   "cycle",
			body:   `{"name":"HLC","nodes":[{"code":"A","title":"A","parentCode":"B"},{"code":"B","title":"B","parentCode":"A"}]}`,
			status: http.StatusBadRequest,
			code:   "STD_CYCLE",
		},
		{
			name:   "too deep",
			body:   `{"name":"HLC","nodes":[{"code":"A","title":"A"},{"code":"B","title":"B","parentCode":"A"},{"code":"C","title":"C","parentCode":"B"}]}`,
			status: http.StatusBadRequest,
			code:   "STD_DEPTH_EXCEEDED",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/standards/hlc/import", testToken, tc.body)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}
}

func TestImport_EchoesRequestID(t *testing.T) {
	router := newAPIRouter(t, services.NewStandardsService(nil, services.ImportLimits{}))

	req := httptest.NewRequest(http.MethodPost, "/api/standards/hlc/import", strings.NewReader(`{`))
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("X-Request-ID", "req-123")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "req-123", decodeError(t, rec).Meta["request_id"])
}

func TestImport_GeneratedRequestIDMatchesHeader(t *testing.T) {
	router := newAPIRouter(t, services.NewStandardsService(nil, services.ImportLimits{}))
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	router.Use(middleware.WithLogger(logger, middleware.DefaultLoggerOptions()))

	// no X-Request-ID supplied: the generated id must show up both in the
	// response header and in the error envelope meta
	req := httptest.NewRequest(http.MethodPost, "/api/standards/hlc/import", strings.NewReader(`{`))
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	headerID := rec.Header().Get("X-Request-Id")
	require.NotEmpty(t, headerID)
	require.Equal(t, headerID, decodeError(t, rec).Meta["request_id"])
}
