package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identkit/userhub/pkg/users"
)

func newBodyReader(body string) io.Reader {
	return strings.NewReader(body)
}

// authHeader creates a user directly through the service and returns a
// header map carrying a valid token for it.
func authHeader(t *testing.T, svc *users.Service, tokens *users.TokenService) map[string]string {
	t.Helper()

	user, err := svc.Create(t.Context(), users.CreateParams{
		Email:    "admin@x.com",
		Name:     "Admin",
		Password: "AdminSecret1!",
	})
	require.NoError(t, err)

	token, err := tokens.Issue(user.ID, user.Email)
	require.NoError(t, err)

	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestLogin(t *testing.T) {
	s, svc, _ := newTestServer(t)

	_, err := svc.Create(t.Context(), users.CreateParams{
		Email:    "a@x.com",
		Name:     "Alice",
		Password: "Secret123!",
	})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodPost, "/auth/login",
		`{"email":"a@x.com","password":"Secret123!"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	assert.NotEmpty(t, resp.Data.Token)
	assert.Equal(t, "a@x.com", resp.Data.User.Email)
	assert.Equal(t, users.PasswordMask, resp.Data.User.Password)
}

func TestLogin_FailuresIndistinguishable(t *testing.T) {
	s, svc, _ := newTestServer(t)

	_, err := svc.Create(t.Context(), users.CreateParams{
		Email:    "a@x.com",
		Name:     "Alice",
		Password: "Secret123!",
	})
	require.NoError(t, err)

	unknown := doRequest(t, s, http.MethodPost, "/auth/login",
		`{"email":"ghost@x.com","password":"Secret123!"}`, nil)
	wrong := doRequest(t, s, http.MethodPost, "/auth/login",
		`{"email":"a@x.com","password":"WrongSecret!"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	// Unknown email and wrong password must be byte-identical on the wire.
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
}

func TestLogin_Validation(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/auth/login", `{"email":"not-an-email"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Errors, 2) // bad email format, missing password
}

func TestCreateUser(t *testing.T) {
	s, svc, tokens := newTestServer(t)
	headers := authHeader(t, svc, tokens)

	w := doRequest(t, s, http.MethodPost, "/users",
		`{"email":"b@x.com","name":"Bob","password":"BobSecret1!"}`, headers)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	assert.NotZero(t, resp.Data.ID)
	assert.Equal(t, "b@x.com", resp.Data.Email)
	assert.Equal(t, users.PasswordMask, resp.Data.Password)
}

func TestCreateUser_Duplicate(t *testing.T) {
	s, svc, tokens := newTestServer(t)
	headers := authHeader(t, svc, tokens)

	body := `{"email":"b@x.com","name":"Bob","password":"BobSecret1!"}`
	w := doRequest(t, s, http.MethodPost, "/users", body, headers)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, s, http.MethodPost, "/users", body, headers)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "email already exists")
}

func TestCreateUser_Validation(t *testing.T) {
	s, svc, tokens := newTestServer(t)
	headers := authHeader(t, svc, tokens)

	w := doRequest(t, s, http.MethodPost, "/users", `{"email":"nope"}`, headers)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Errors, 3) // email format, missing name, missing password

	w = doRequest(t, s, http.MethodPost, "/users", `not-json`, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListUsers(t *testing.T) {
	s, svc, tokens := newTestServer(t)
	headers := authHeader(t, svc, tokens)

	w := doRequest(t, s, http.MethodGet, "/users", "", headers)
	require.Equal(t, http.StatusOK, w.Code)

	var resp UserListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	assert.Len(t, *resp.Data, 1) // the auth fixture user
}

func TestGetUser(t *testing.T) {
	s, svc, tokens := newTestServer(t)
	headers := authHeader(t, svc, tokens)

	created, err := svc.Create(t.Context(), users.CreateParams{
		Email:    "b@x.com",
		Name:     "Bob",
		Password: "BobSecret1!",
	})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodGet, fmt.Sprintf("/users/%d", created.ID), "", headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"b@x.com"`)

	w = doRequest(t, s, http.MethodGet, "/users/99999", "", headers)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, s, http.MethodGet, "/users/abc", "", headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateUser(t *testing.T) {
	s, svc, tokens := newTestServer(t)
	headers := authHeader(t, svc, tokens)

	created, err := svc.Create(t.Context(), users.CreateParams{
		Email:    "b@x.com",
		Name:     "Bob",
		Password: "BobSecret1!",
	})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodPut, fmt.Sprintf("/users/%d", created.ID),
		`{"name":"Robert"}`, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Robert"`)

	// Taking another identity's email is a conflict.
	w = doRequest(t, s, http.MethodPut, fmt.Sprintf("/users/%d", created.ID),
		`{"email":"admin@x.com"}`, headers)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, s, http.MethodPut, "/users/99999", `{"name":"Nobody"}`, headers)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUser(t *testing.T) {
	s, svc, tokens := newTestServer(t)
	headers := authHeader(t, svc, tokens)

	created, err := svc.Create(t.Context(), users.CreateParams{
		Email:    "b@x.com",
		Name:     "Bob",
		Password: "BobSecret1!",
	})
	require.NoError(t, err)

	path := fmt.Sprintf("/users/%d", created.ID)

	w := doRequest(t, s, http.MethodDelete, path, "", headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"b@x.com"`)

	// Repeated delete answers not-found each time.
	w = doRequest(t, s, http.MethodDelete, path, "", headers)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, s, http.MethodDelete, path, "", headers)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResponsesNeverLeakHash(t *testing.T) {
	s, svc, tokens := newTestServer(t)
	headers := authHeader(t, svc, tokens)

	for _, path := range []string{"/users", "/users/me"} {
		w := doRequest(t, s, http.MethodGet, path, "", headers)
		require.Equal(t, http.StatusOK, w.Code, "path: %s", path)
		assert.NotContains(t, w.Body.String(), "$2a$", "path: %s", path)
		assert.Contains(t, w.Body.String(), users.PasswordMask, "path: %s", path)
	}
}
