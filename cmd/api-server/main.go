package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	crm "github.com/xenking/crm/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := crm.LoadConfig()
		if err != nil {
			return err
		}
		return crm.Run(ctx, lg, m, cfg)
	})
}
