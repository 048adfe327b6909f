package broker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func createSessionRequest(token string, csrfCookie *http.Cookie, body string, extra ...*http.Cookie) *http.Request {
	request := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(body))
	if token != "" {
		request.Header.Set(headerNameCSRFToken, token)
	}
	if csrfCookie != nil {
		request.AddCookie(csrfCookie)
	}
	for _, cookie := range extra {
		request.AddCookie(cookie)
	}
	return request
}

func terminateSessionRequest(token string, csrfCookie *http.Cookie, extra ...*http.Cookie) *http.Request {
	request := httptest.NewRequest(http.MethodPost, "/v1/sessions/terminate", nil)
	if token != "" {
		request.Header.Set(headerNameCSRFToken, token)
	}
	if csrfCookie != nil {
		request.AddCookie(csrfCookie)
	}
	for _, cookie := range extra {
		request.AddCookie(cookie)
	}
	return request
}

func TestService_CreateSession(t *testing.T) {
	mock := newMockProvider(t)
	_, handler := newTestService(t, mock)
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, ""))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["url"] != "https://vm.example.com/ses-123" {
		t.Errorf("url = %v, want the provider embed URL", body["url"])
	}
	if body["expires_in"] != float64(300) {
		t.Errorf("expires_in = %v, want the default 300", body["expires_in"])
	}
	if mock.lastCreateExpiresIn != 300 {
		t.Errorf("provider received expires_in = %d, want 300", mock.lastCreateExpiresIn)
	}

	cookie := findCookie(recorder.Result().Cookies(), cookieNameCredential)
	if cookie == nil {
		t.Fatal("no credential cookie was set")
	}
	if !cookie.HttpOnly || cookie.Path != "/" || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("credential cookie attributes = %+v", cookie)
	}
	if cookie.MaxAge != 900 {
		t.Errorf("credential cookie Max-Age = %d, want the fixed cap 900", cookie.MaxAge)
	}

	cred, err := (newTestCodec()).Decode(cookie.Value)
	if err != nil {
		t.Fatalf("credential cookie does not decode: %v", err)
	}
	if cred.SessionID != "ses-123" || cred.AdminToken != "adm-456" {
		t.Errorf("decoded credential = %+v", cred)
	}
}

func TestService_CreateSession_CustomLeaseDuration(t *testing.T) {
	mock := newMockProvider(t)
	_, handler := newTestService(t, mock)
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, `{"expires_in":120}`))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if decodeBody(t, recorder)["expires_in"] != float64(120) {
		t.Error("expires_in was not echoed back")
	}
	if mock.lastCreateExpiresIn != 120 {
		t.Errorf("provider received expires_in = %d, want 120", mock.lastCreateExpiresIn)
	}
}

func TestService_CreateSession_MalformedLeaseDurationFallsBack(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "non-numeric duration",
			body: `{"expires_in":"soon"}`,
		},
		{
			name: "negative duration",
			body: `{"expires_in":-5}`,
		},
		{
			name: "malformed JSON",
			body: `{{{`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mock := newMockProvider(t)
			_, handler := newTestService(t, mock)
			token, csrfCookie := issueCSRFToken(t, handler)

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, tc.body))

			if recorder.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", recorder.Code)
			}
			if mock.lastCreateExpiresIn != 300 {
				t.Errorf("provider received expires_in = %d, want the default 300", mock.lastCreateExpiresIn)
			}
		})
	}
}

func TestService_CreateSession_InvalidCSRF(t *testing.T) {
	mock := newMockProvider(t)
	_, handler := newTestService(t, mock)
	token, csrfCookie := issueCSRFToken(t, handler)

	tests := []struct {
		name    string
		request *http.Request
	}{
		{
			name:    "missing header",
			request: createSessionRequest("", csrfCookie, ""),
		},
		{
			name:    "missing cookie",
			request: createSessionRequest(token, nil, ""),
		},
		{
			name:    "mismatched header",
			request: createSessionRequest("some-other-token", csrfCookie, ""),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, tc.request)

			if recorder.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403", recorder.Code)
			}
			if findCookie(recorder.Result().Cookies(), cookieNameCredential) != nil {
				t.Error("a credential cookie was set on a rejected request")
			}
		})
	}
	if mock.lastCreateExpiresIn != 0 {
		t.Error("the provider was called despite CSRF rejection")
	}
}

func TestService_CreateSession_WrongAPISecret(t *testing.T) {
	service, handler := newTestService(t, newMockProvider(t))
	service.Config.APISecret = "s3cret"
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, ""))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", recorder.Code)
	}

	request := createSessionRequest(token, csrfCookie, "")
	request.Header.Set(headerNameAPISecret, "s3cret")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d with the correct secret, want 200", recorder.Code)
	}
}

func TestService_CreateSession_MissingProviderAPIKey(t *testing.T) {
	service, handler := newTestService(t, newMockProvider(t))
	service.Config.ProviderAPIKey = ""
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, ""))

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
	if decodeBody(t, recorder)["error"] != "Missing provider API key" {
		t.Errorf("error = %v", decodeBody(t, recorder)["error"])
	}
}

func TestService_CreateSession_ProviderFailure(t *testing.T) {
	mock := newMockProvider(t)
	mock.createStatus = http.StatusInternalServerError
	mock.createBody = map[string]interface{}{"error": "out of capacity"}
	_, handler := newTestService(t, mock)
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, ""))

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
	if message, _ := decodeBody(t, recorder)["error"].(string); !strings.Contains(message, "out of capacity") {
		t.Errorf("error = %q, want it to surface the provider message", message)
	}
	if findCookie(recorder.Result().Cookies(), cookieNameCredential) != nil {
		t.Error("a credential cookie was set on a failed creation")
	}
}

func TestService_CreateSession_AlreadyActive(t *testing.T) {
	mock := newMockProvider(t)
	_, handler := newTestService(t, mock)
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, ""))
	if recorder.Code != http.StatusOK {
		t.Fatalf("first create: status = %d, want 200", recorder.Code)
	}
	credCookie := findCookie(recorder.Result().Cookies(), cookieNameCredential)

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, "", credCookie))
	if recorder.Code != http.StatusConflict {
		t.Fatalf("second create: status = %d, want 409", recorder.Code)
	}
	if decodeBody(t, recorder)["error"] != "Session already active" {
		t.Errorf("error = %v", decodeBody(t, recorder)["error"])
	}
}

func TestService_TerminateSession(t *testing.T) {
	mock := newMockProvider(t)
	_, handler := newTestService(t, mock)
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, ""))
	credCookie := findCookie(recorder.Result().Cookies(), cookieNameCredential)
	if credCookie == nil {
		t.Fatal("no credential cookie was set on creation")
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, terminateSessionRequest(token, csrfCookie, credCookie))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", recorder.Code, recorder.Body.String())
	}
	if decodeBody(t, recorder)["success"] != true {
		t.Error("response is not {success:true}")
	}
	if len(mock.deleteCalls) != 1 || mock.deleteCalls[0] != "ses-123" {
		t.Errorf("provider delete calls = %v, want exactly one for ses-123", mock.deleteCalls)
	}
	if mock.lastDeleteAuth != "Bearer adm-456" {
		t.Errorf("provider delete Authorization = %q, want the admin token", mock.lastDeleteAuth)
	}

	cleared := findCookie(recorder.Result().Cookies(), cookieNameCredential)
	if cleared == nil {
		t.Fatal("the credential cookie was not cleared")
	}
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Errorf("credential cookie was not invalidated: %+v", cleared)
	}
}

func TestService_TerminateSession_Idempotent(t *testing.T) {
	mock := newMockProvider(t)
	_, handler := newTestService(t, mock)
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, ""))
	credCookie := findCookie(recorder.Result().Cookies(), cookieNameCredential)

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, terminateSessionRequest(token, csrfCookie, credCookie))
	if recorder.Code != http.StatusOK {
		t.Fatalf("first terminate: status = %d, want 200", recorder.Code)
	}

	// The browser no longer holds the credential cookie after the first terminate
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, terminateSessionRequest(token, csrfCookie))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("second terminate: status = %d, want 400", recorder.Code)
	}
	if decodeBody(t, recorder)["error"] != "No active session" {
		t.Errorf("second terminate error = %v", decodeBody(t, recorder)["error"])
	}
	if len(mock.deleteCalls) != 1 {
		t.Errorf("provider delete calls = %d, want 1", len(mock.deleteCalls))
	}
}

func TestService_TerminateSession_NoActiveSession(t *testing.T) {
	_, handler := newTestService(t, newMockProvider(t))
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, terminateSessionRequest(token, csrfCookie))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
	if decodeBody(t, recorder)["error"] != "No active session" {
		t.Errorf("error = %v", decodeBody(t, recorder)["error"])
	}
	// The cookie is cleared defensively even though none was present
	if findCookie(recorder.Result().Cookies(), cookieNameCredential) == nil {
		t.Error("no defensive cookie clearing happened")
	}
}

func TestService_TerminateSession_MalformedCredential(t *testing.T) {
	mock := newMockProvider(t)
	_, handler := newTestService(t, mock)
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, terminateSessionRequest(token, csrfCookie, &http.Cookie{
		Name:  cookieNameCredential,
		Value: "garbage",
	}))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
	if len(mock.deleteCalls) != 0 {
		t.Error("the provider was called for an undecodable credential")
	}
	cleared := findCookie(recorder.Result().Cookies(), cookieNameCredential)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Error("the malformed credential cookie was not cleared")
	}
}

func TestService_TerminateSession_ProviderFailureStillClearsCookie(t *testing.T) {
	mock := newMockProvider(t)
	mock.deleteStatus = http.StatusInternalServerError
	mock.deleteBody = "session not found"
	_, handler := newTestService(t, mock)
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, ""))
	credCookie := findCookie(recorder.Result().Cookies(), cookieNameCredential)

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, terminateSessionRequest(token, csrfCookie, credCookie))

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
	if message, _ := decodeBody(t, recorder)["error"].(string); !strings.Contains(message, "session not found") {
		t.Errorf("error = %q, want it to surface the provider message", message)
	}
	cleared := findCookie(recorder.Result().Cookies(), cookieNameCredential)
	if cleared == nil {
		t.Fatal("the credential cookie was not cleared despite the provider failure")
	}
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Errorf("credential cookie was not invalidated: %+v", cleared)
	}
}

func TestService_TerminateSession_InvalidCSRFDoesNotClearCookie(t *testing.T) {
	mock := newMockProvider(t)
	_, handler := newTestService(t, mock)
	token, csrfCookie := issueCSRFToken(t, handler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, createSessionRequest(token, csrfCookie, ""))
	credCookie := findCookie(recorder.Result().Cookies(), cookieNameCredential)

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, terminateSessionRequest("wrong-token", csrfCookie, credCookie))

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", recorder.Code)
	}
	if findCookie(recorder.Result().Cookies(), cookieNameCredential) != nil {
		t.Error("the credential cookie was touched on the CSRF rejection path")
	}
	if len(mock.deleteCalls) != 0 {
		t.Error("the provider was called despite CSRF rejection")
	}
}
