// Package app groups the fx modules shared by the daemon and the operator CLI.
package app

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/followup/internal/clock"
	"github.com/smallbiznis/followup/internal/config"
	"github.com/smallbiznis/followup/internal/facility"
	"github.com/smallbiznis/followup/internal/followup"
	"github.com/smallbiznis/followup/internal/migration"
	"github.com/smallbiznis/followup/internal/observability"
	"github.com/smallbiznis/followup/internal/outbound"
	"github.com/smallbiznis/followup/internal/recurring"
	"github.com/smallbiznis/followup/internal/transaction"
	"github.com/smallbiznis/followup/pkg/db"
	"go.uber.org/fx"
)

// Core is everything except the HTTP server and the scheduler loop.
var Core = fx.Options(
	config.Module,
	observability.Module,
	fx.Provide(RegisterSnowflake),
	db.Module,
	clock.Module,
	migration.Module,

	transaction.Module,
	outbound.Module,
	facility.Module,
	followup.Module,
	recurring.Module,
)

// RegisterSnowflake builds the ID node for this replica. Replicas sharing a
// database must be configured with distinct NODE_ID values.
func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
