// Package serve runs the HTTP API.
package serve

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	infragin "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/metrics"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/profiling"
	"github.com/jonesrussell/north-cloud/affiliate-engine/cmd/common"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/api"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/storage"
)

const metricsNamespace = "affiliate_engine"

// Command returns the serve command.
func Command(opts *common.Options, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.Load()
			if err != nil {
				return err
			}

			profiling.StartPprofServer(cfg.Profiling, log)
			if cfg.Profiling.Pyroscope {
				profiler, profErr := profiling.StartPyroscope(cfg.Profiling, cfg.Service.Name, version, log)
				if profErr != nil {
					log.Warn("Continuous profiling disabled", logger.Error(profErr))
				} else {
					defer func() { _ = profiler.Stop() }()
				}
			}

			app, err := common.NewApp(cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			handler := api.NewHandler(app.Products, app.Discovery, app.Links, app.Ads, log)
			httpMetrics := metrics.NewHTTPMetrics(app.Telemetry.Registry(), metricsNamespace)

			builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
				WithLogger(log).
				WithDebug(cfg.Service.Debug).
				WithVersion(version).
				WithCORSOrigins(cfg.Service.CORSOrigins).
				WithJWTAuth(cfg.Auth.JWTSecret).
				WithMiddleware(httpMetrics.Middleware()).
				WithMetrics(app.Telemetry.Handler()).
				WithHealthCheck("database", infragin.DatabaseHealthChecker(storage.Ping(app.DB))).
				WithRoutes(func(_ *gin.Engine, v1 *gin.RouterGroup) {
					handler.RegisterRoutes(v1)
				})
			if app.Redis != nil {
				builder = builder.WithHealthCheck("redis", infragin.RedisHealthChecker(func(ctx context.Context) error {
					return app.Redis.Ping(ctx).Err()
				}))
			}

			return builder.Build().Run(cmd.Context())
		},
	}
}
