package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/huangsam/leadscore/core"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/internal/persist"
	"github.com/huangsam/leadscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var fixedNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *contract.Config {
	return &contract.Config{
		Tenant:    "default",
		Workers:   2,
		RateLimit: 1000,
		RateBurst: 1000,
		JWTSecret: testSecret,
	}
}

func newTestRouter(t *testing.T, cfg *contract.Config, withStore bool) *gin.Engine {
	t.Helper()
	mgr := persist.NewStoreManager(nil, nil)
	if withStore {
		configs, err := persist.NewConfigStore(schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		results, err := persist.NewResultStore(schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = configs.Close()
			_ = results.Close()
		})
		mgr = persist.NewStoreManager(configs, results)
	}
	engine := core.NewEngine(core.WithClock(func() time.Time { return fixedNow }))
	router, err := NewRouter(cfg, mgr, engine, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return router
}

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, router http.Handler, method, path, tenant string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, jwt.MapClaims{"tenant_id": tenant}))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, testConfig(), false)
	w := do(t, router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuth(t *testing.T) {
	router := newTestRouter(t, testConfig(), false)

	t.Run("missing token", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/v1/frameworks", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, errMissingToken, decode[ErrorResponse](t, w).Error)
	})

	t.Run("wrong secret", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"tenant_id": "acme"}).SignedString([]byte("other"))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/v1/frameworks", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, errInvalidToken, decode[ErrorResponse](t, w).Error)
	})

	t.Run("expired", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/frameworks", nil)
		expired := jwt.MapClaims{"tenant_id": "acme", "exp": time.Now().Add(-time.Hour).Unix()}
		req.Header.Set("Authorization", "Bearer "+token(t, expired))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("no tenant claim", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/frameworks", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, jwt.MapClaims{"sub": "user-1"}))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, errNoTenant, decode[ErrorResponse](t, w).Error)
	})

	t.Run("healthz is public", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestFixedTenantWithoutSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = ""
	router := newTestRouter(t, cfg, false)

	w := do(t, router, http.MethodGet, "/v1/frameworks", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Tenant     string                   `json:"tenant"`
		Frameworks []schema.FrameworkConfig `json:"frameworks"`
	}](t, w)
	assert.Equal(t, "default", body.Tenant)
	require.Len(t, body.Frameworks, 4)
	assert.Equal(t, schema.APEX, body.Frameworks[0].Framework)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 2
	router := newTestRouter(t, cfg, false)

	for range 2 {
		assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/v1/frameworks", "acme", nil).Code)
	}
	w := do(t, router, http.MethodGet, "/v1/frameworks", "acme", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate limit exceeded", decode[ErrorResponse](t, w).Error)
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORSOrigins = []string{"https://app.example.com"}
	router := newTestRouter(t, cfg, false)

	req := httptest.NewRequest(http.MethodOptions, "/v1/frameworks", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	_, err := CORS([]string{"not a url"})
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	router := newTestRouter(t, testConfig(), false)
	payload := map[string]any{"title": "VP of Sales", "timeline": "Need this asap"}

	t.Run("single framework", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/v1/score/bant?contact_id=c-42", "acme", payload)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decode[map[string]any](t, w)
		assert.Equal(t, "c-42", got["contact_id"])
		assert.Equal(t, "BANT", got["framework_id"])
		assert.EqualValues(t, 58, got["composite_score"])
		assert.Equal(t, "Warm", got["tier"])
		assert.EqualValues(t, 80, got["authority_score"])
		assert.Equal(t, "2026-04-01T12:00:00Z", got["calculated_at"])
	})

	t.Run("all frameworks", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/v1/score/all", "acme", payload)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decode[[]map[string]any](t, w)
		require.Len(t, got, 4)
		assert.Equal(t, "APEX", got[0]["framework_id"])
	})

	t.Run("unknown framework", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/v1/score/champ", "acme", payload)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("payload not an object", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/v1/score/bant", "acme", `[1,2]`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode[ErrorResponse](t, w).Error, "malformed enrichment payload")
	})
}

func TestBodyLimit(t *testing.T) {
	router := newTestRouter(t, testConfig(), false)
	oversized := `{"notes":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	t.Run("score", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/v1/score/bant", "acme", oversized)
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
		assert.Equal(t, msgBodyTooLarge, decode[ErrorResponse](t, w).Error)
	})

	t.Run("batch", func(t *testing.T) {
		body := `{"contacts":[{"id":"c-1","enrichment":` + oversized + `}]}`
		w := do(t, router, http.MethodPost, "/v1/score/bant/batch", "acme", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("under the limit", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/v1/score/bant", "acme", `{"notes":"`+strings.Repeat("x", 1024)+`"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestScoreBatch(t *testing.T) {
	router := newTestRouter(t, testConfig(), true)

	body := map[string]any{"contacts": []map[string]any{
		{"id": "c-1", "enrichment": map[string]any{"title": "VP of Sales", "timeline": "asap"}},
		{"id": "c-2", "enrichment": map[string]any{"title": "Intern"}},
		{"id": "c-1", "enrichment": map[string]any{}},
		{"id": "c-3", "enrichment": "not an object"},
	}}
	w := do(t, router, http.MethodPost, "/v1/score/BANT/batch", "acme", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	batch := decode[schema.BatchResult](t, w)
	assert.NotEmpty(t, batch.RunID)
	assert.Equal(t, 4, batch.Total)
	assert.Equal(t, 2, batch.Scored)
	require.Len(t, batch.Failed, 2)
	assert.Equal(t, "c-1", batch.Failed[0].ContactID)
	assert.Contains(t, batch.Failed[0].Error, "duplicate contact id")
	assert.Equal(t, "c-3", batch.Failed[1].ContactID)

	t.Run("empty batch", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/v1/score/bant/batch", "acme", map[string]any{"contacts": []any{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, msgValidationFailed, decode[ErrorResponse](t, w).Error)
	})
}

func TestConfigEndpoints(t *testing.T) {
	router := newTestRouter(t, testConfig(), true)

	t.Run("get default", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/v1/configs/bant", "acme", nil)
		require.Equal(t, http.StatusOK, w.Code)
		fc := decode[schema.FrameworkConfig](t, w)
		assert.Equal(t, 0, fc.Version)
		assert.Equal(t, []schema.DimensionKey{"budget", "authority", "need", "timeline"}, fc.Weights.Keys())
	})

	t.Run("set weight", func(t *testing.T) {
		w := do(t, router, http.MethodPatch, "/v1/configs/bant/weights", "acme", map[string]any{"dimension": "budget", "weight": 70})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[weightsResponse](t, w)
		assert.True(t, resp.Saved)
		assert.Equal(t, 1, resp.Config.Version)
		assert.Equal(t, map[schema.DimensionKey]int{"budget": 70, "authority": 10, "need": 10, "timeline": 10}, resp.Config.Weights.Map())
	})

	t.Run("clamped rebalance needs acceptance", func(t *testing.T) {
		w := do(t, router, http.MethodPatch, "/v1/configs/bant/weights", "acme", map[string]any{"dimension": "need", "weight": 100})
		require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
		resp := decode[weightsResponse](t, w)
		assert.False(t, resp.Saved)
		assert.NotEmpty(t, resp.Advisory)
		assert.Equal(t, []schema.DimensionKey{"authority", "timeline"}, resp.Clamped)

		w = do(t, router, http.MethodGet, "/v1/configs/bant", "acme", nil)
		assert.Equal(t, 1, decode[schema.FrameworkConfig](t, w).Version)

		w = do(t, router, http.MethodPatch, "/v1/configs/bant/weights", "acme", map[string]any{"dimension": "need", "weight": 100, "accept_clamped": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp = decode[weightsResponse](t, w)
		assert.True(t, resp.Saved)
		assert.Equal(t, 2, resp.Config.Version)
		assert.Equal(t, 100, resp.Config.Weights.Sum())
	})

	t.Run("tenants are isolated", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/v1/configs/bant", "globex", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, decode[schema.FrameworkConfig](t, w).Version)
	})

	t.Run("weight errors", func(t *testing.T) {
		w := do(t, router, http.MethodPatch, "/v1/configs/bant/weights", "acme", map[string]any{"dimension": "revenue", "weight": 10})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode[ErrorResponse](t, w).Error, "unknown dimension")

		w = do(t, router, http.MethodPatch, "/v1/configs/bant/weights", "acme", map[string]any{"dimension": "need", "weight": 101})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, msgValidationFailed, decode[ErrorResponse](t, w).Error)

		w = do(t, router, http.MethodPatch, "/v1/configs/bant/weights", "acme", map[string]any{"dimension": "need", "weight": 12.5})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, msgInvalidRequest, decode[ErrorResponse](t, w).Error)
	})

	t.Run("thresholds", func(t *testing.T) {
		w := do(t, router, http.MethodPut, "/v1/configs/spice/thresholds", "acme", map[string]any{"hot_min": 80, "warm_min": 60})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		fc := decode[schema.FrameworkConfig](t, w)
		assert.Equal(t, schema.ThresholdSet{HotMin: 80, WarmMin: 60}, fc.Thresholds)

		w = do(t, router, http.MethodPut, "/v1/configs/spice/thresholds", "acme", map[string]any{"hot_min": 50, "warm_min": 60})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("put config", func(t *testing.T) {
		body := map[string]any{
			"version": 0,
			"weights": map[string]int{"ability": 40, "priority": 20, "engagement": 20, "executive": 20},
		}
		w := do(t, router, http.MethodPut, "/v1/configs/apex", "acme", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 1, decode[schema.FrameworkConfig](t, w).Version)

		w = do(t, router, http.MethodPut, "/v1/configs/apex", "acme", body)
		assert.Equal(t, http.StatusConflict, w.Code)

		body["version"] = 1
		body["weights"] = map[string]int{"ability": 80, "priority": 20, "engagement": 20, "executive": 20}
		w = do(t, router, http.MethodPut, "/v1/configs/apex", "acme", body)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decode[struct {
			Error   string   `json:"error"`
			Details []string `json:"details"`
		}](t, w)
		assert.Contains(t, resp.Error, "invalid APEX configuration")
		assert.Contains(t, resp.Details, "weights sum to 140, want 100")

		w = do(t, router, http.MethodPut, "/v1/configs/apex", "acme", map[string]any{"weights": map[string]int{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestConfigWritesWithoutStore(t *testing.T) {
	router := newTestRouter(t, testConfig(), false)
	w := do(t, router, http.MethodPut, "/v1/configs/bant/thresholds", "acme", map[string]any{"hot_min": 80, "warm_min": 60})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
