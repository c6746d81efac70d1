package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/procura/internal/auth"
	"github.com/Additional-Code/procura/internal/cache"
	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/database"
	"github.com/Additional-Code/procura/internal/logger"
	"github.com/Additional-Code/procura/internal/messaging"
	"github.com/Additional-Code/procura/internal/observability"
	repositorycatalog "github.com/Additional-Code/procura/internal/repository/catalog"
	repositoryorder "github.com/Additional-Code/procura/internal/repository/order"
	grpcserver "github.com/Additional-Code/procura/internal/server/grpc"
	httpserver "github.com/Additional-Code/procura/internal/server/http"
	serviceinvoice "github.com/Additional-Code/procura/internal/service/invoice"
	serviceorder "github.com/Additional-Code/procura/internal/service/order"
	servicesession "github.com/Additional-Code/procura/internal/service/session"
	"github.com/Additional-Code/procura/internal/service/settings"
	"github.com/Additional-Code/procura/internal/storage"
	transporthttp "github.com/Additional-Code/procura/internal/transport/http"
	"github.com/Additional-Code/procura/internal/worker"
	workerorder "github.com/Additional-Code/procura/internal/worker/order"
)

// Infra provides configuration, logging, telemetry and the database.
var Infra = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
	database.Module,
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	Infra,
	cache.Module,
	messaging.Module,
	storage.Module,
	auth.Module,
	settings.Module,
	repositorycatalog.Module,
	repositoryorder.Module,
	serviceorder.Module,
	serviceinvoice.Module,
	servicesession.Module,
)

// HTTP wires the HTTP and gRPC servers on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring.
var Module = HTTP
