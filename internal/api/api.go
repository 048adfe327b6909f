package api

import (
	"errors"
	"net/http"

	"github.com/embedvm/session-broker/internal/api/broker"
	"github.com/embedvm/session-broker/internal/config"
	"github.com/embedvm/session-broker/internal/credential"
	"github.com/embedvm/session-broker/internal/provider"
	"github.com/embedvm/session-broker/internal/storage"
)

// Service represents the session broker API service
type Service struct {
	Config   *config.Config
	Storage  storage.Driver
	Provider provider.Client
	Codec    credential.Codec

	broker *broker.Service
}

// Startup starts up the broker API
func (service *Service) Startup(errs chan<- error) {
	brokerService := &broker.Service{
		Config:   service.Config,
		Storage:  service.Storage,
		Provider: service.Provider,
		Codec:    service.Codec,
	}
	service.broker = brokerService
	go func() {
		if err := brokerService.Startup(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
}

// Shutdown shuts down the broker API
func (service *Service) Shutdown() {
	if service.broker != nil {
		service.broker.Shutdown()
		service.broker = nil
	}
}
