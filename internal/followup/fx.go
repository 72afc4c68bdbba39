package followup

import (
	"github.com/smallbiznis/followup/internal/followup/repository"
	"github.com/smallbiznis/followup/internal/followup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("followup.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
