package broker

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

func (service *Service) respond(writer http.ResponseWriter, status int, value interface{}) {
	response, _ := json.Marshal(value)
	writer.WriteHeader(status)
	writer.Write(response)
}

func (service *Service) error(writer http.ResponseWriter, status int, message string) {
	service.respond(writer, status, map[string]interface{}{
		"error": message,
	})
}

func (service *Service) internalError(writer http.ResponseWriter, err error) {
	service.error(writer, http.StatusInternalServerError, "internal error")
	log.Error().Err(err).Msg("the broker API experienced an unexpected error")
}
