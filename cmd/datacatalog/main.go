package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/madgik/datacatalog/internal/config"
	"github.com/madgik/datacatalog/internal/infra/database"
	"github.com/madgik/datacatalog/internal/infra/gateway"
	"github.com/madgik/datacatalog/internal/infra/repository"
	"github.com/madgik/datacatalog/internal/present/rest"
	"github.com/madgik/datacatalog/internal/present/rest/middleware"
	"github.com/madgik/datacatalog/internal/service"
	"github.com/madgik/datacatalog/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.MigratePostgres(db); err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if conf.Server.EnableTrace {
		cleanup, err := setupTraceProvider(conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer cleanup()
	}

	events := service.NewEventService(nil)
	if conf.Server.RedisAddr != "" {
		rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
		events = service.NewEventService(rdb)
	}

	dqt := gateway.NewDQTGateway(conf.DataQualityTool.BaseURL, time.Duration(conf.DataQualityTool.TimeoutSeconds)*time.Second)

	dataModelRepo := repository.NewDataModelRepository(db)
	federationRepo := repository.NewFederationRepository(db)

	dataModelUC := usecase.NewDataModelUsecase(dataModelRepo, dqt, events)
	federationUC := usecase.NewFederationUsecase(federationRepo, events)

	auth := service.NewAuthService(conf.Auth)
	authMiddleware := middleware.NewAuthMiddleware(auth)

	handler := rest.NewHandler(dataModelUC, federationUC, events)

	e := echo.New()
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("datacatalog"))
	}
	e.Use(authMiddleware.IdentifyUser)

	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.Listen))
}

func setupTraceProvider(endpoint string) (func(), error) {
	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	cleanup := func() {
		_ = provider.Shutdown(context.Background())
	}
	return cleanup, nil
}
