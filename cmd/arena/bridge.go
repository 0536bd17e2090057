package main

import (
	"context"

	"agent-arena/internal/arena"
	"agent-arena/pkg/config"

	"github.com/rs/zerolog/log"
)

// startBridgeIfEnabled starts the scoring gRPC bridge when GRPC_ADDR is set.
func startBridgeIfEnabled(svc *arena.Service, cfg *config.Config) func(context.Context) error {
	if cfg.GRPCAddr == "" {
		return nil
	}

	stop, err := arena.StartGRPCBridge(svc, cfg.GRPCAddr, cfg.LogLevel, cfg.LogToFile)
	if err != nil {
		log.Error().Err(err).Str("addr", cfg.GRPCAddr).Msg("Failed to start gRPC bridge")
		return nil
	}
	log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC bridge started")
	return stop
}
