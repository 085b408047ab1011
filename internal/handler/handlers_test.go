package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"voiceorder-service/internal/blob"
	"voiceorder-service/internal/model"
	"voiceorder-service/internal/prompt"
	"voiceorder-service/pkg/config"
	"voiceorder-service/pkg/database"
	"voiceorder-service/pkg/jwtutil"
	"voiceorder-service/prometheus"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "handlertest"}})
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})
	os.Exit(m.Run())
}

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) GenerateText(ctx context.Context, systemPrompt, userText string) (string, error) {
	return f.response, f.err
}

// setupTest wires the package globals against an in-memory database and a
// temp-dir blob store, mirroring the wiring done in main.
func setupTest(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Order{},
		&model.OrderItem{},
		&model.UnmatchedItem{},
		&model.PromptVersion{},
		&model.Correction{},
	))
	database.DB = db

	store, err := blob.NewLocalStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	promptStore := prompt.NewStore(db)
	improver := prompt.NewImprover(promptStore, &fakeGenerator{response: "merged prompt with transcript field"})

	Init(nil, store, nil, promptStore, improver)
	return db
}

func newJSONContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func createUser(t *testing.T, db *gorm.DB, username, password, role string) model.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := model.User{Username: username, Password: string(hashed), Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestLoginSuccess(t *testing.T) {
	db := setupTest(t)
	createUser(t, db, "clerk", "secret123", model.RoleUser)

	c, rec := newJSONContext(t, http.MethodPost, "/api/auth/login", `{"username":"clerk","password":"secret123"}`)
	require.NoError(t, Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "clerk", resp.User.Username)

	claims, err := jwtutil.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "clerk", claims.Username)
	assert.Equal(t, model.RoleUser, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTest(t)
	createUser(t, db, "clerk", "secret123", model.RoleUser)

	c, rec := newJSONContext(t, http.MethodPost, "/api/auth/login", `{"username":"clerk","password":"wrong"}`)
	require.NoError(t, Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	setupTest(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"whatever"}`)
	require.NoError(t, Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSeedAdmin(t *testing.T) {
	db := setupTest(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/auth/seed-admin", `{"password":"admin-secret"}`)
	require.NoError(t, SeedAdmin(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var admin model.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("admin-secret")))

	// Second seed is a no-op
	c, rec = newJSONContext(t, http.MethodPost, "/api/auth/seed-admin", `{"password":"other"}`)
	require.NoError(t, SeedAdmin(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "exists")
}

func TestSeedAdminRequiresPassword(t *testing.T) {
	setupTest(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/auth/seed-admin", `{}`)
	require.NoError(t, SeedAdmin(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderValidation(t *testing.T) {
	setupTest(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/orders", `{"company_id":"comp-1"}`)
	require.NoError(t, CreateOrder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "audio_id")
}

func TestUploadAudioRawBody(t *testing.T) {
	setupTest(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/orders/upload", strings.NewReader("fake-ogg-bytes"))
	req.Header.Set(echo.HeaderContentType, "audio/ogg")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, UploadAudio(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		AudioID string `json:"audio_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AudioID)

	// The stored clip is served back under its identifier
	req = httptest.NewRequest(http.MethodGet, "/api/audio/"+resp.AudioID, nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(resp.AudioID)

	require.NoError(t, ServeAudio(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/ogg", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "fake-ogg-bytes", rec.Body.String())
}

func TestServeAudioMissing(t *testing.T) {
	setupTest(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/audio/no-such-id", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("no-such-id")

	require.NoError(t, ServeAudio(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderDetails(t *testing.T) {
	db := setupTest(t)

	ord := model.Order{CompanyID: "comp-1", CompanyName: "Acme", AudioID: "a1", Status: model.OrderStatusCompleted, Transcript: "do elbow"}
	require.NoError(t, db.Create(&ord).Error)
	require.NoError(t, db.Create(&model.OrderItem{OrderID: ord.ID, Name: "Elbow", Size: `1/2"`, CatalogPrice: 50, LLMPrice: 45, Quantity: 2, Unit: "adad", Confidence: model.ConfidenceHigh}).Error)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/orders/%d", ord.ID), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(ord.ID))

	require.NoError(t, GetOrder(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var details OrderDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Equal(t, "do elbow", details.Transcript)
	require.Len(t, details.Items, 1)
	assert.Equal(t, 50.0, details.Items[0].CatalogPrice)
	assert.NotNil(t, details.Unmatched)
	assert.Empty(t, details.Unmatched)
}

func TestGetOrderNotFound(t *testing.T) {
	setupTest(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/orders/999", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("999")

	require.NoError(t, GetOrder(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrdersFilteredByCompany(t *testing.T) {
	db := setupTest(t)

	require.NoError(t, db.Create(&model.Order{CompanyID: "comp-1", AudioID: "a1", Status: model.OrderStatusProcessing}).Error)
	require.NoError(t, db.Create(&model.Order{CompanyID: "comp-2", AudioID: "a2", Status: model.OrderStatusProcessing}).Error)

	c, rec := newJSONContext(t, http.MethodGet, "/api/orders?company_id=comp-1", "")
	require.NoError(t, ListOrders(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var orders []model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "comp-1", orders[0].CompanyID)
}

func TestSeedPromptEndpoint(t *testing.T) {
	setupTest(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/prompts/seed", "")
	require.NoError(t, SeedPrompt(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var version model.PromptVersion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &version))
	assert.Equal(t, 1, version.Version)

	c, rec = newJSONContext(t, http.MethodPost, "/api/prompts/seed", "")
	require.NoError(t, SeedPrompt(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetActivePromptBeforeSeed(t *testing.T) {
	setupTest(t)

	c, rec := newJSONContext(t, http.MethodGet, "/api/prompts/active", "")
	require.NoError(t, GetActivePrompt(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestAddCorrectionEndpoint(t *testing.T) {
	db := setupTest(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/corrections",
		`{"type":"teach_term","term_heard":"gond","term_meaning":"Weld-On solvent cement","company_id":"comp-1"}`)
	require.NoError(t, AddCorrection(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var stored model.Correction
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, model.CorrectionStatusPending, stored.Status)
	assert.Equal(t, "gond", stored.TermHeard)
}

func TestAddCorrectionRejectsBadType(t *testing.T) {
	setupTest(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/corrections",
		`{"type":"nonsense","term_heard":"x","term_meaning":"y"}`)
	require.NoError(t, AddCorrection(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddCorrectionRequiresTerms(t *testing.T) {
	setupTest(t)

	c, rec := newJSONContext(t, http.MethodPost, "/api/corrections", `{"type":"teach_term","term_heard":"x"}`)
	require.NoError(t, AddCorrection(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectCorrectionEndpoint(t *testing.T) {
	db := setupTest(t)

	correction := model.Correction{Type: model.CorrectionTypeTeachTerm, TermHeard: "gond", TermMeaning: "cement", Status: model.CorrectionStatusPending}
	require.NoError(t, db.Create(&correction).Error)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/corrections/%d/reject", correction.ID), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(correction.ID))

	require.NoError(t, RejectCorrection(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Rejecting again conflicts
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/corrections/%d/reject", correction.ID), nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(correction.ID))

	require.NoError(t, RejectCorrection(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestApplyCorrectionsEndpoint(t *testing.T) {
	db := setupTest(t)

	_, err := prompt.NewStore(db).Seed()
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Correction{Type: model.CorrectionTypeTeachTerm, TermHeard: "gond", TermMeaning: "cement", Status: model.CorrectionStatusPending}).Error)

	c, rec := newJSONContext(t, http.MethodPost, "/api/prompts/apply-corrections", "")
	require.NoError(t, ApplyCorrections(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var version model.PromptVersion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &version))
	assert.Equal(t, 2, version.Version)
	assert.Equal(t, model.PromptSourceAdminCorrection, version.Source)
}

func TestApplyCorrectionsWithNothingPending(t *testing.T) {
	db := setupTest(t)

	_, err := prompt.NewStore(db).Seed()
	require.NoError(t, err)

	c, rec := newJSONContext(t, http.MethodPost, "/api/prompts/apply-corrections", "")
	require.NoError(t, ApplyCorrections(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRollbackPromptEndpoint(t *testing.T) {
	db := setupTest(t)

	store := prompt.NewStore(db)
	seeded, err := store.Seed()
	require.NoError(t, err)
	_, err = store.SaveImproved("second prompt with transcript", nil, "edit")
	require.NoError(t, err)

	c, rec := newJSONContext(t, http.MethodPost, "/api/prompts/rollback",
		fmt.Sprintf(`{"version_id":%d}`, seeded.ID))
	require.NoError(t, RollbackPrompt(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var version model.PromptVersion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &version))
	assert.Equal(t, 3, version.Version)
	assert.Equal(t, seeded.Prompt, version.Prompt)
}

func TestRollbackPromptUnknownVersion(t *testing.T) {
	db := setupTest(t)

	_, err := prompt.NewStore(db).Seed()
	require.NoError(t, err)

	c, rec := newJSONContext(t, http.MethodPost, "/api/prompts/rollback", `{"version_id":9999}`)
	require.NoError(t, RollbackPrompt(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
