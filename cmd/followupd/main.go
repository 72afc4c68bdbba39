package main

import (
	"github.com/smallbiznis/followup/internal/app"
	"github.com/smallbiznis/followup/internal/scheduler"
	"github.com/smallbiznis/followup/internal/server"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		app.Core,
		scheduler.Module,
		server.Module,
	).Run()
}
