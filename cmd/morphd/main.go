// Command morphd runs the morph daemon as a standalone process.
package main

import (
	"context"
	"flag"
	"log"

	"morph/internal/config"
	"morph/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	socketPath := flag.String("socket", "", "IPC socket path override")
	logLevel := flag.String("log-level", "", "log level override")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:   *logLevel,
		SocketPath: *socketPath,
	}); err != nil {
		log.Fatalf("run daemon: %v", err)
	}
}
