package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pagebrief/entitlement-service/internal/dto"
)

func (s *Suite) register(email, password string) dto.AuthResponse {
	body, _ := json.Marshal(dto.RegisterRequest{Email: email, Password: password})

	resp, err := http.Post(s.BaseURL+"/api/v1/auth/register", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode, "Registration should succeed")

	var authResp dto.AuthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&authResp))
	return authResp
}

func (s *Suite) authedRequest(method, path, token string, body []byte) *http.Response {
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, s.BaseURL+path, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, s.BaseURL+path, nil)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) TestRegister_Success() {
	body, _ := json.Marshal(dto.RegisterRequest{
		Email:    "test@example.com",
		Password: "Password123",
	})

	resp, err := http.Post(
		s.BaseURL+"/api/v1/auth/register",
		"application/json",
		bytes.NewBuffer(body),
	)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)

	var authResp dto.AuthResponse
	err = json.NewDecoder(resp.Body).Decode(&authResp)
	s.Require().NoError(err)

	s.NotEmpty(authResp.AccessToken)
	s.Equal("Bearer", authResp.TokenType)
	s.NotZero(authResp.ExpiresIn)
	s.False(authResp.IsPremium, "New accounts start on the free tier")
	s.Equal("test@example.com", authResp.User.Email)
	s.NotEmpty(authResp.User.ID)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	body, _ := json.Marshal(dto.RegisterRequest{
		Email:    "duplicate@example.com",
		Password: "Password123",
	})

	resp1, _ := http.Post(s.BaseURL+"/api/v1/auth/register", "application/json", bytes.NewBuffer(body))
	resp1.Body.Close()

	body, _ = json.Marshal(dto.RegisterRequest{
		Email:    "duplicate@example.com",
		Password: "Password123",
	})
	resp2, err := http.Post(s.BaseURL+"/api/v1/auth/register", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp2.Body.Close()

	s.Equal(http.StatusConflict, resp2.StatusCode)

	var errResp dto.ErrorResponse
	json.NewDecoder(resp2.Body).Decode(&errResp)
	s.Equal("Conflict", errResp.Error)
}

func (s *Suite) TestRegister_InvalidEmail() {
	body, _ := json.Marshal(dto.RegisterRequest{
		Email:    "invalid-email",
		Password: "Password123",
	})

	resp, err := http.Post(s.BaseURL+"/api/v1/auth/register", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRegister_ShortPassword() {
	body, _ := json.Marshal(dto.RegisterRequest{
		Email:    "test@example.com",
		Password: "short",
	})

	resp, err := http.Post(s.BaseURL+"/api/v1/auth/register", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_Success() {
	s.register("login@example.com", "Password123")

	body, _ := json.Marshal(dto.LoginRequest{
		Email:    "login@example.com",
		Password: "Password123",
	})

	resp, err := http.Post(s.BaseURL+"/api/v1/auth/login", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var authResp dto.AuthResponse
	err = json.NewDecoder(resp.Body).Decode(&authResp)
	s.Require().NoError(err)

	s.NotEmpty(authResp.AccessToken)
	s.Equal("Bearer", authResp.TokenType)
	s.Equal("login@example.com", authResp.User.Email)
}

func (s *Suite) TestLogin_InvalidCredentials() {
	body, _ := json.Marshal(dto.LoginRequest{
		Email:    "nonexistent@example.com",
		Password: "wrongpassword",
	})

	resp, err := http.Post(s.BaseURL+"/api/v1/auth/login", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var errResp dto.ErrorResponse
	json.NewDecoder(resp.Body).Decode(&errResp)
	s.Equal("Unauthorized", errResp.Error)
}

func (s *Suite) TestLogin_WrongPassword() {
	s.register("wrongpass@example.com", "CorrectPassword123")

	body, _ := json.Marshal(dto.LoginRequest{
		Email:    "wrongpass@example.com",
		Password: "WrongPassword123",
	})

	resp, err := http.Post(s.BaseURL+"/api/v1/auth/login", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogin_IssuesIndependentCredentials() {
	first := s.register("multidevice@example.com", "Password123")

	body, _ := json.Marshal(dto.LoginRequest{
		Email:    "multidevice@example.com",
		Password: "Password123",
	})
	resp, err := http.Post(s.BaseURL+"/api/v1/auth/login", "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	// Logging in again must not invalidate the earlier credential
	meResp := s.authedRequest("GET", "/api/v1/auth/me", first.AccessToken, nil)
	defer meResp.Body.Close()
	s.Equal(http.StatusOK, meResp.StatusCode)
}

func (s *Suite) TestGetMe_Success() {
	auth := s.register("getme@example.com", "Password123")

	resp := s.authedRequest("GET", "/api/v1/auth/me", auth.AccessToken, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var userResp dto.UserResponse
	err := json.NewDecoder(resp.Body).Decode(&userResp)
	s.Require().NoError(err)

	s.NotEmpty(userResp.ID)
	s.Equal("getme@example.com", userResp.Email)
	s.NotEmpty(userResp.CreatedAt)
	s.False(userResp.IsPremium)
}

func (s *Suite) TestGetMe_NoToken() {
	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/me", nil)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestGetMe_InvalidToken() {
	resp := s.authedRequest("GET", "/api/v1/auth/me", "invalid-token", nil)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogout_RevokesCredential() {
	auth := s.register("logout@example.com", "Password123")

	resp := s.authedRequest("POST", "/api/v1/auth/logout", auth.AccessToken, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var successResp dto.SuccessResponse
	json.NewDecoder(resp.Body).Decode(&successResp)
	s.Equal("Logged out successfully", successResp.Message)

	// The revoked credential must stop authenticating immediately
	meResp := s.authedRequest("GET", "/api/v1/auth/me", auth.AccessToken, nil)
	defer meResp.Body.Close()
	s.Equal(http.StatusUnauthorized, meResp.StatusCode)
}

func (s *Suite) TestLogout_NoToken() {
	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/logout", nil)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}
