package service

import (
	"context"
	"fmt"

	"github.com/protocolindex/projectsink/libs/log"
)

type groupImpl struct {
	*BaseService
	services []Service
}

// NewGroup returns a Service that starts the given services in order and
// stops them in reverse order.
func NewGroup(logger log.Logger, name string, services ...Service) Service {
	srv := &groupImpl{
		services: services,
	}
	srv.BaseService = NewBaseService(logger, name, srv)
	return srv
}

func (gs *groupImpl) OnStart(ctx context.Context) error {
	for i, srv := range gs.services {
		if err := srv.Start(ctx); err != nil {
			gs.stopFrom(i - 1)
			return fmt.Errorf("starting %s: %w", srv, err)
		}
	}
	return nil
}

func (gs *groupImpl) OnStop() {
	gs.stopFrom(len(gs.services) - 1)
}

func (gs *groupImpl) stopFrom(last int) {
	for i := last; i >= 0; i-- {
		srv := gs.services[i]
		if !srv.IsRunning() {
			continue
		}
		if err := srv.Stop(); err != nil {
			gs.logger.Error("failed to stop service", "service", srv.String(), "err", err)
		}
	}
}
