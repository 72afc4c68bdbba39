package facility

import (
	"github.com/smallbiznis/followup/internal/facility/drivers/jsonapi"
	"github.com/smallbiznis/followup/internal/facility/registry"
	"go.uber.org/fx"
)

var Module = fx.Module("facility",
	jsonapi.Module,
	fx.Provide(registry.Provide),
)
