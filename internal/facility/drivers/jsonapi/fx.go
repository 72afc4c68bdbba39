package jsonapi

import (
	"github.com/smallbiznis/followup/internal/config"
	"github.com/smallbiznis/followup/internal/facility/domain"
	"github.com/smallbiznis/followup/internal/outbound"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("facility.jsonapi",
	fx.Provide(
		fx.Annotate(
			ProvideDrivers,
			fx.ResultTags(`group:"facility_drivers,flatten"`),
		),
	),
)

// ProvideDrivers builds one driver per entry of the facilities file.
func ProvideDrivers(cfg config.Config, client *outbound.Client, log *zap.Logger) ([]domain.Driver, error) {
	configs, err := LoadConfigs(cfg.FacilityFile)
	if err != nil {
		return nil, err
	}

	drivers := make([]domain.Driver, 0, len(configs))
	for _, c := range configs {
		driver, err := New(c, client)
		if err != nil {
			return nil, err
		}
		log.Named("facility").Info("facility driver configured",
			zap.String("facility", driver.Facility()),
			zap.Bool("editable", driver.RequestsEditable()),
		)
		drivers = append(drivers, driver)
	}
	return drivers, nil
}
