package broker

import "net/http"

var (
	cookieNameCSRFToken = "csrfToken"
	headerNameCSRFToken = "x-csrf-token"
)

// EndpointIssueCSRFToken handles the 'GET /v1/csrf' endpoint
func (service *Service) EndpointIssueCSRFToken(writer http.ResponseWriter, _ *http.Request) {
	token, err := service.guard.Issue(writer)
	if err != nil {
		service.internalError(writer, err)
		return
	}
	service.respond(writer, http.StatusOK, map[string]interface{}{
		"csrfToken": token,
	})
}

// MiddlewareVerifyCSRF makes sure that the request carries a CSRF token header matching the CSRF token cookie
// (double-submit pattern). Requests failing the check are rejected without any state change.
func (service *Service) MiddlewareVerifyCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if !service.guard.Verify(request) {
			service.error(writer, http.StatusForbidden, "Invalid CSRF token")
			return
		}
		next(writer, request)
	}
}
