// internal/server/server_test.go
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"design-assistant/internal/auth"
	"design-assistant/internal/common/config"
	"design-assistant/internal/common/logger"
	"design-assistant/internal/design"
	"design-assistant/internal/models"
	"design-assistant/internal/store"
)

const testSecret = "test-secret"

// ==========================
// Test Doubles
// ==========================

type stubGenerator struct {
	result map[string]interface{}
	err    error
}

func (g *stubGenerator) GenerateDesign(ctx context.Context, req *models.DesignRequest) (map[string]interface{}, error) {
	return g.result, g.err
}

func (g *stubGenerator) Close() error { return nil }

type fakeProducer struct {
	published [][]byte
}

func (p *fakeProducer) Publish(ctx context.Context, payload []byte) {
	p.published = append(p.published, payload)
}

// ==========================
// Test Helper Functions
// ==========================

func generatorResult() map[string]interface{} {
	return map[string]interface{}{
		"services":  []interface{}{map[string]interface{}{"name": "api"}},
		"databases": []interface{}{},
		"apis":      []interface{}{},
		"diagrams": []interface{}{
			map[string]interface{}{"type": "mermaid", "content": "flowchart LR\n  A --> B\n"},
		},
		"notes": "",
	}
}

func setupServer(t *testing.T) (*Server, sqlmock.Sqlmock, *fakeProducer) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	producer := &fakeProducer{}

	designSvc := design.NewService(
		users,
		store.NewDesignStore(db),
		&stubGenerator{result: generatorResult()},
		producer,
		logger.NewNoOpLogger(),
	)
	authSvc := auth.NewService(users, testSecret, time.Hour, logger.NewNoOpLogger())

	srv := New(config.ServerConfig{Address: ":0"}, authSvc, designSvc, nil, logger.NewNoOpLogger())
	return srv, mock, producer
}

func bearerToken(t *testing.T, userID int64, email string) string {
	t.Helper()

	now := time.Now()
	claims := auth.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doRequest(srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)
	return rec
}

func expectUserByEmail(mock sqlmock.Sqlmock, email string, id int64) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, name, password_hash FROM users WHERE email = $1`)).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash"}).
			AddRow(id, email, "Dev", "hash"))
}

// ==========================
// Routing and Auth Tests
// ==========================

func TestHealthz(t *testing.T) {
	srv, _, _ := setupServer(t)

	rec := doRequest(srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDesigns_RequireBearerToken(t *testing.T) {
	srv, _, _ := setupServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/v1/designs", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDesigns_RejectTamperedToken(t *testing.T) {
	srv, _, _ := setupServer(t)

	token := bearerToken(t, 3, "dev@example.com")
	rec := doRequest(srv, http.MethodGet, "/api/v1/designs", token+"x", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ==========================
// Design Endpoint Tests
// ==========================

func TestCreateDesign_SyncReturnsArtifact(t *testing.T) {
	srv, mock, producer := setupServer(t)

	expectUserByEmail(mock, "dev@example.com", 3)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO designs (prompt, raw_output, mermaid_code, created_at, user_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	token := bearerToken(t, 3, "dev@example.com")
	rec := doRequest(srv, http.MethodPost, "/api/v1/designs", token, `{"prompt":"url shortener"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var artifact models.DesignArtifact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &artifact))
	assert.Equal(t, int64(7), artifact.ID)
	assert.Equal(t, "flowchart LR\n  A --> B\n", artifact.MermaidCode)
	assert.Empty(t, producer.published)
}

func TestCreateDesign_AdvancedAccepted(t *testing.T) {
	srv, mock, producer := setupServer(t)

	expectUserByEmail(mock, "dev@example.com", 3)

	token := bearerToken(t, 3, "dev@example.com")
	rec := doRequest(srv, http.MethodPost, "/api/v1/designs", token, `{"prompt":"big system","complexity":"advanced"}`)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var artifact models.DesignArtifact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &artifact))
	assert.Equal(t, "Job queued", artifact.RawOutput["status"])
	assert.Len(t, producer.published, 1)
}

func TestCreateDesign_BodyValidation(t *testing.T) {
	srv, _, _ := setupServer(t)
	token := bearerToken(t, 3, "dev@example.com")

	tests := []struct {
		name string
		body string
	}{
		{name: "missing prompt", body: `{"style":"microservices"}`},
		{name: "empty prompt", body: `{"prompt":""}`},
		{name: "not json", body: `prompt=hello`},
		{name: "unknown field", body: `{"prompt":"x","budget":100}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/api/v1/designs", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetDesign_NonNumericID(t *testing.T) {
	srv, mock, _ := setupServer(t)

	expectUserByEmail(mock, "dev@example.com", 3)
	token := bearerToken(t, 3, "dev@example.com")

	rec := doRequest(srv, http.MethodGet, "/api/v1/designs/abc", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_DisabledWithoutIndexer(t *testing.T) {
	srv, _, _ := setupServer(t)
	token := bearerToken(t, 3, "dev@example.com")

	rec := doRequest(srv, http.MethodGet, "/api/v1/designs/search?q=shortener", token, "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

// ==========================
// Auth Endpoint Tests
// ==========================

func TestSignupAndLoginFlow(t *testing.T) {
	srv, mock, _ := setupServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`)).
		WithArgs("new@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (email, name, password_hash) VALUES ($1, $2, $3) RETURNING id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	rec := doRequest(srv, http.MethodPost, "/api/v1/auth/signup", "", `{"email":"new@example.com","name":"New","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, int64(5), user.ID)
}

func TestSignup_WeakPasswordRejected(t *testing.T) {
	srv, _, _ := setupServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/v1/auth/signup", "", `{"email":"a@b.co","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_UnknownUser(t *testing.T) {
	srv, mock, _ := setupServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, name, password_hash FROM users WHERE email = $1`)).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	rec := doRequest(srv, http.MethodPost, "/api/v1/auth/login", "", `{"email":"ghost@example.com","password":"whatever"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
