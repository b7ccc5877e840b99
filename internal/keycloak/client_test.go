package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockKeycloak создаёт mock HTTP-сервер Keycloak.
// tokenHandler обрабатывает запросы на получение токена.
// adminHandler обрабатывает запросы к Admin REST API.
func setupMockKeycloak(t *testing.T, tokenHandler, adminHandler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()

	// Token endpoint
	mux.HandleFunc("/realms/hostel/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenHandler != nil {
			tokenHandler(w, r)
			return
		}
		// Дефолтный ответ: валидный токен на 300 секунд
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "test-access-token",
			TokenType:   "Bearer",
			ExpiresIn:   300,
		})
	})

	// Admin REST API
	mux.HandleFunc("/admin/realms/hostel/", func(w http.ResponseWriter, r *http.Request) {
		if adminHandler != nil {
			adminHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := New(
		server.URL,
		"hostel",
		"key-module",
		"test-secret",
		server.Client(),
		testLogger(),
	)

	return server, client
}

// TestClient_TokenCaching проверяет кэширование сервисного токена.
func TestClient_TokenCaching(t *testing.T) {
	tokenRequests := 0

	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			tokenRequests++
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{
				AccessToken: "cached-token",
				TokenType:   "Bearer",
				ExpiresIn:   300,
			})
		},
		nil,
	)

	ctx := context.Background()

	// Первый запрос — получение токена
	token1, err := client.getToken(ctx)
	if err != nil {
		t.Fatalf("Ошибка получения токена: %v", err)
	}
	if token1 != "cached-token" {
		t.Errorf("token = %q, ожидается cached-token", token1)
	}

	// Второй запрос — из кэша, без обращения к Keycloak
	token2, err := client.getToken(ctx)
	if err != nil {
		t.Fatalf("Ошибка получения токена из кэша: %v", err)
	}
	if token2 != token1 {
		t.Errorf("токены не совпадают: %q != %q", token2, token1)
	}
	if tokenRequests != 1 {
		t.Errorf("запросов токена = %d, ожидается 1 (кэширование)", tokenRequests)
	}
}

// TestClient_PasswordGrant проверяет обмен учётных данных на токены.
func TestClient_PasswordGrant(t *testing.T) {
	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Fatalf("Ошибка разбора формы: %v", err)
			}
			if gt := r.PostFormValue("grant_type"); gt != "password" {
				t.Errorf("grant_type = %q, ожидается password", gt)
			}
			if u := r.PostFormValue("username"); u != "st-1001@hostel.local" {
				t.Errorf("username = %q, ожидается st-1001@hostel.local", u)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{
				AccessToken:  "user-access-token",
				RefreshToken: "user-refresh-token",
				TokenType:    "Bearer",
				ExpiresIn:    300,
			})
		},
		nil,
	)

	token, err := client.PasswordGrant(context.Background(), "st-1001@hostel.local", "secret")
	if err != nil {
		t.Fatalf("PasswordGrant() вернул ошибку: %v", err)
	}
	if token.AccessToken != "user-access-token" {
		t.Errorf("AccessToken = %q, ожидается user-access-token", token.AccessToken)
	}
	if token.RefreshToken != "user-refresh-token" {
		t.Errorf("RefreshToken = %q, ожидается user-refresh-token", token.RefreshToken)
	}
}

// TestClient_PasswordGrant_InvalidCredentials проверяет ErrInvalidGrant при неверном пароле.
func TestClient_PasswordGrant_InvalidCredentials(t *testing.T) {
	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid user credentials"}`))
		},
		nil,
	)

	_, err := client.PasswordGrant(context.Background(), "st-1001@hostel.local", "wrong")
	if !errors.Is(err, ErrInvalidGrant) {
		t.Errorf("PasswordGrant() err = %v, ожидается ErrInvalidGrant", err)
	}
}

// TestClient_CreateUser проверяет создание пользователя и извлечение ID из Location.
func TestClient_CreateUser(t *testing.T) {
	var gotReq userCreateRequest

	server, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/users") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
				t.Fatalf("Ошибка декодирования запроса: %v", err)
			}
			w.Header().Set("Location", r.Host+r.URL.Path+"/kc-user-42")
			w.WriteHeader(http.StatusCreated)
		},
	)
	_ = server

	id, err := client.CreateUser(context.Background(),
		"st-1001@hostel.local", "st-1001@hostel.local", "Иван Петров", "secret", "student")
	if err != nil {
		t.Fatalf("CreateUser() вернул ошибку: %v", err)
	}
	if id != "kc-user-42" {
		t.Errorf("id = %q, ожидается kc-user-42", id)
	}

	if gotReq.Username != "st-1001@hostel.local" {
		t.Errorf("Username = %q, ожидается st-1001@hostel.local", gotReq.Username)
	}
	if !gotReq.Enabled {
		t.Error("Enabled = false, пользователь должен создаваться активным")
	}
	if len(gotReq.Credentials) != 1 || gotReq.Credentials[0].Temporary {
		t.Errorf("Credentials = %+v, ожидается один постоянный пароль", gotReq.Credentials)
	}
	if roles := gotReq.Attributes["role"]; len(roles) != 1 || roles[0] != "student" {
		t.Errorf("Attributes[role] = %v, ожидается [student]", roles)
	}
}

// TestClient_CreateUser_Conflict проверяет ErrUserExists при 409.
func TestClient_CreateUser_Conflict(t *testing.T) {
	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"errorMessage":"User exists with same username"}`))
		},
	)

	_, err := client.CreateUser(context.Background(),
		"st-1001@hostel.local", "st-1001@hostel.local", "Иван Петров", "secret", "student")
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("CreateUser() err = %v, ожидается ErrUserExists", err)
	}
}

// TestClient_GetUserByUsername проверяет поиск пользователя.
func TestClient_GetUserByUsername(t *testing.T) {
	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("exact") != "true" {
				t.Errorf("ожидается exact=true, получено %q", r.URL.Query().Get("exact"))
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode([]KeycloakUser{
				{ID: "kc-user-42", Username: "st-1001@hostel.local", Enabled: true},
			})
		},
	)

	user, err := client.GetUserByUsername(context.Background(), "st-1001@hostel.local")
	if err != nil {
		t.Fatalf("GetUserByUsername() вернул ошибку: %v", err)
	}
	if user == nil || user.ID != "kc-user-42" {
		t.Errorf("user = %+v, ожидается ID kc-user-42", user)
	}
}

// TestClient_GetUserByUsername_NotFound проверяет nil для отсутствующего пользователя.
func TestClient_GetUserByUsername_NotFound(t *testing.T) {
	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[]`))
		},
	)

	user, err := client.GetUserByUsername(context.Background(), "nobody@hostel.local")
	if err != nil {
		t.Fatalf("GetUserByUsername() вернул ошибку: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, ожидается nil", user)
	}
}

// TestClient_SetUserEnabled проверяет включение/отключение пользователя.
func TestClient_SetUserEnabled(t *testing.T) {
	var gotBody map[string]bool

	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				t.Errorf("метод = %s, ожидается PUT", r.Method)
			}
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Fatalf("Ошибка декодирования запроса: %v", err)
			}
			w.WriteHeader(http.StatusNoContent)
		},
	)

	if err := client.SetUserEnabled(context.Background(), "kc-user-42", false); err != nil {
		t.Fatalf("SetUserEnabled() вернул ошибку: %v", err)
	}
	if gotBody["enabled"] {
		t.Error("enabled = true, ожидается false")
	}
}

// TestClient_CheckReady проверяет readiness-проверку Keycloak.
func TestClient_CheckReady(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus string
	}{
		{
			name: "realm доступен",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(RealmRepresentation{Realm: "hostel", Enabled: true})
			},
			wantStatus: "ok",
		},
		{
			name: "realm отключён",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(RealmRepresentation{Realm: "hostel", Enabled: false})
			},
			wantStatus: "degraded",
		},
		{
			name: "keycloak недоступен",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantStatus: "fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := setupMockKeycloak(t, nil, tt.handler)

			status, _ := client.CheckReady()
			if status != tt.wantStatus {
				t.Errorf("CheckReady() status = %q, ожидается %q", status, tt.wantStatus)
			}
		})
	}
}
