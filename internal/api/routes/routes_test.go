package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"pest-tracker-api-server/config"
	"pest-tracker-api-server/internal/auth"
	"pest-tracker-api-server/internal/repository/memory"
	"pest-tracker-api-server/internal/service"
	"pest-tracker-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
	auth.BcryptCost = bcrypt.MinCost
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	tokens *auth.TokenIssuer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	svc := service.New(memory.NewStore(), service.Options{Tokens: tokens})
	return &testAPI{t: t, router: SetupRouter(config.Config{}, svc, tokens, socket.NewHub()), tokens: tokens}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) register(name, role string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/register", "", gin.H{
		"name":         name,
		"email":        name + "@example.com",
		"password":     "secret123",
		"role":         role,
		"farmLocation": "North field",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotContains(a.t, resp.User, "password")
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestPingAndNotFound(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())

	w = api.do(http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Endpoint Not Found"}`, w.Body.String())

	w = api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)
	api.register("ama", "farmer")

	w := api.do(http.MethodPost, "/api/login", "", gin.H{"email": "AMA@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, "/api/login", "", gin.H{"email": "ama@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Invalid credentials"}`, w.Body.String())

	w = api.do(http.MethodPost, "/api/register", "", gin.H{
		"name": "ama", "email": "ama@example.com", "password": "secret123", "role": "farmer", "farmLocation": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoleGating(t *testing.T) {
	api := newTestAPI(t)
	farmer := api.register("ama", "farmer")
	agent := api.register("kofi", "pestcontrol")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/crops/farmer", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/pests", "garbage", http.StatusUnauthorized},
		{"farmer lists all crops", http.MethodGet, "/api/crops", farmer, http.StatusForbidden},
		{"agent lists own crops", http.MethodGet, "/api/crops/farmer", agent, http.StatusForbidden},
		{"farmer creates pest", http.MethodPost, "/api/pests", farmer, http.StatusForbidden},
		{"agent reads stats", http.MethodGet, "/api/admin/stats", agent, http.StatusForbidden},
		{"farmer reads summary", http.MethodGet, "/api/reports/summary?startDate=2024-01-01&endDate=2024-01-02", farmer, http.StatusForbidden},
		{"any role lists pests", http.MethodGet, "/api/pests", farmer, http.StatusOK},
		{"agent lists all crops", http.MethodGet, "/api/crops", agent, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestCropAndPestFlow(t *testing.T) {
	api := newTestAPI(t)
	farmer := api.register("ama", "farmer")
	agent := api.register("kofi", "pestcontrol")

	w := api.do(http.MethodPost, "/api/crops", farmer, gin.H{"name": "Maize", "plantingDate": "2024-03-01", "location": "Plot A"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	crop := decode[map[string]any](t, w)
	assert.Equal(t, "growing", crop["status"])
	assert.Equal(t, []any{}, crop["pests"])
	cropID := crop["id"].(string)

	w = api.do(http.MethodPost, "/api/pests", agent, gin.H{
		"name":           "Fall armyworm",
		"symptoms":       []string{"ragged leaves"},
		"controlMethods": []gin.H{{"method": "Bt spray", "effectiveness": "high"}},
		"affectedCrops":  []string{cropID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pestID := decode[map[string]any](t, w)["id"].(string)

	w = api.do(http.MethodGet, "/api/crops/farmer", farmer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[[]map[string]any](t, w)
	require.Len(t, mine, 1)
	pests := mine[0]["pests"].([]any)
	require.Len(t, pests, 1)
	assert.Equal(t, "Fall armyworm", pests[0].(map[string]any)["name"])

	w = api.do(http.MethodGet, "/api/crops", agent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]map[string]any](t, w)
	require.Len(t, all, 1)
	assert.Equal(t, "ama", all[0]["farmerId"].(map[string]any)["name"])

	w = api.do(http.MethodPut, "/api/crops/"+cropID, farmer, gin.H{"status": "eaten"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(http.MethodPut, "/api/crops/"+cropID, farmer, gin.H{"status": "harvested", "farmerId": primitive.NewObjectID().Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "harvested", decode[map[string]any](t, w)["status"])

	w = api.do(http.MethodPut, "/api/pests/"+pestID, agent, gin.H{"affectedCrops": []string{"not-an-id"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodDelete, "/api/crops/not-an-id", farmer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Crop not found"}`, w.Body.String())

	w = api.do(http.MethodDelete, "/api/pests/"+pestID, agent, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Pest deleted successfully"}`, w.Body.String())

	w = api.do(http.MethodDelete, "/api/crops/"+cropID, farmer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Crop deleted successfully"}`, w.Body.String())
}

func TestReportFlow(t *testing.T) {
	api := newTestAPI(t)
	farmer := api.register("ama", "farmer")
	agent := api.register("kofi", "pestcontrol")

	w := api.do(http.MethodPost, "/api/reports", farmer, gin.H{"location": "Plot A", "description": "holes"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reportID := decode[map[string]any](t, w)["id"].(string)

	w = api.do(http.MethodPut, "/api/reports/"+reportID, farmer, gin.H{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPut, "/api/reports/"+reportID, agent, gin.H{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPut, "/api/reports/"+reportID, agent, gin.H{"status": "completed", "actionTaken": "sprayed", "success": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	today := time.Now().UTC().Format("2006-01-02")
	w = api.do(http.MethodGet, "/api/reports/summary?startDate="+today+"&endDate="+today, agent, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"total":1,"completed":1,"pending":0,"inProgress":0,"successRate":1}`, w.Body.String())

	w = api.do(http.MethodGet, "/api/reports/summary", agent, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/reports", farmer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]any](t, w), 1)
}

func TestImageUploadWithoutStorage(t *testing.T) {
	api := newTestAPI(t)
	farmer := api.register("ama", "farmer")
	w := api.do(http.MethodPost, "/api/reports", farmer, gin.H{"location": "Plot A", "description": "holes"})
	reportID := decode[map[string]any](t, w)["id"].(string)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="leaf.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, _ = part.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports/"+reportID+"/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+farmer)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	api.register("ama", "farmer")
	admin, err := api.tokens.GenerateJWT(primitive.NewObjectID().Hex(), "admin")
	require.NoError(t, err)

	w := api.do(http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[map[string]any](t, w)
	assert.Equal(t, float64(1), stats["totalFarmers"])
	assert.Equal(t, float64(0), stats["averageCropsPerFarmer"])

	w = api.do(http.MethodGet, "/api/admin/users/admin", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Invalid role specified"}`, w.Body.String())

	w = api.do(http.MethodGet, "/api/admin/users/farmer", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[[]map[string]any](t, w)
	require.Len(t, users, 1)
	assert.Equal(t, []any{}, users[0]["activityDetails"])

	w = api.do(http.MethodGet, "/api/admin/reports/activity?startDate=2024-01-01&endDate=2024-01-03", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[map[string]any](t, w)
	assert.Len(t, report["timeline"], 3)
}
