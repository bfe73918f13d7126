package main

import (
	"github.com/OFFIS-RIT/cinegraph/backend/internal/server"
	"github.com/OFFIS-RIT/cinegraph/backend/internal/util"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		Prefix: "server",
	})
	logger.Init(consoleLogger)

	server.Init()
}
