package broker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/embedvm/session-broker/internal/credential"
	"github.com/rs/zerolog/log"
)

var (
	cookieNameCredential = "hyperbeam"
	headerNameAPISecret  = "x-api-secret"
)

type endpointCreateSessionRequestPayload struct {
	ExpiresIn *int `json:"expires_in"`
}

// MiddlewareVerifyAPISecret makes sure that the request carries the configured shared API secret.
// If no secret is configured, every request passes.
func (service *Service) MiddlewareVerifyAPISecret(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		secret := service.Config.APISecret
		if secret != "" && request.Header.Get(headerNameAPISecret) != secret {
			service.error(writer, http.StatusForbidden, "Forbidden")
			return
		}
		next(writer, request)
	}
}

// EndpointCreateSession handles the 'POST /v1/sessions' endpoint
func (service *Service) EndpointCreateSession(writer http.ResponseWriter, request *http.Request) {
	if service.Config.ProviderAPIKey == "" {
		service.error(writer, http.StatusInternalServerError, "Missing provider API key")
		return
	}

	// Refuse to provision a second VM while the browser still holds a live lease.
	// A credential whose lease the registry no longer knows about falls through; the new cookie wins.
	if cookie, err := request.Cookie(cookieNameCredential); err == nil {
		if cred, err := service.Codec.Decode(cookie.Value); err == nil {
			active, err := service.Storage.Leases().GetBySessionID(request.Context(), cred.SessionID)
			if err != nil {
				service.internalError(writer, err)
				return
			}
			if active != nil && !active.Expired() {
				service.error(writer, http.StatusConflict, "Session already active")
				return
			}
		}
	}

	// An absent, malformed or non-positive lease duration falls back to the default
	expiresIn := service.Config.DefaultLeaseSeconds
	payload := new(endpointCreateSessionRequestPayload)
	if err := json.NewDecoder(request.Body).Decode(payload); err == nil && payload.ExpiresIn != nil && *payload.ExpiresIn > 0 {
		expiresIn = *payload.ExpiresIn
	}

	session, err := service.Provider.CreateSession(request.Context(), expiresIn)
	if err != nil {
		service.error(writer, http.StatusInternalServerError, err.Error())
		return
	}

	encoded, err := service.Codec.Encode(&credential.Credential{
		SessionID:  session.SessionID,
		AdminToken: session.AdminToken,
	})
	if err != nil {
		service.internalError(writer, err)
		return
	}

	// The registry is advisory bookkeeping; the session is already provisioned at this point
	if _, err := service.Storage.Leases().Create(request.Context(), session.SessionID, time.Now().Unix()+int64(expiresIn)); err != nil {
		log.Error().Err(err).Msg("could not register the session lease")
	}

	// The cookie lifetime is a fixed cap independent of the lease: it has to outlive the lease
	// long enough to permit a clean terminate call, but it is not the authoritative expiry
	http.SetCookie(writer, &http.Cookie{
		Name:     cookieNameCredential,
		Value:    encoded,
		Path:     "/",
		MaxAge:   service.Config.SessionCookieMaxAge,
		Secure:   service.Config.IsEnvProduction(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	service.respond(writer, http.StatusOK, map[string]interface{}{
		"url":        session.EmbedURL,
		"expires_in": expiresIn,
	})
}

// EndpointTerminateSession handles the 'POST /v1/sessions/terminate' endpoint
func (service *Service) EndpointTerminateSession(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(cookieNameCredential)
	if err != nil || cookie.Value == "" {
		service.clearCredentialCookie(writer)
		service.error(writer, http.StatusBadRequest, "No active session")
		return
	}
	cred, err := service.Codec.Decode(cookie.Value)
	if err != nil {
		service.clearCredentialCookie(writer)
		service.error(writer, http.StatusBadRequest, "No active session")
		return
	}

	deleteErr := service.Provider.DeleteSession(request.Context(), cred.SessionID, cred.AdminToken)

	// The browser-visible session ends no matter what the provider said
	service.clearCredentialCookie(writer)
	if err := service.Storage.Leases().DeleteBySessionID(request.Context(), cred.SessionID); err != nil {
		log.Error().Err(err).Msg("could not drop the session lease")
	}

	if deleteErr != nil {
		service.error(writer, http.StatusInternalServerError, deleteErr.Error())
		return
	}
	service.respond(writer, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

func (service *Service) clearCredentialCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     cookieNameCredential,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
