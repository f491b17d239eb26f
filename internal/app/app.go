package app

import (
	"go.uber.org/fx"

	"github.com/compralink/procura/internal/cache"
	"github.com/compralink/procura/internal/config"
	"github.com/compralink/procura/internal/database"
	"github.com/compralink/procura/internal/logger"
	"github.com/compralink/procura/internal/messaging"
	"github.com/compralink/procura/internal/observability"
	repositoryorder "github.com/compralink/procura/internal/repository/order"
	repositoryproduct "github.com/compralink/procura/internal/repository/product"
	repositorysector "github.com/compralink/procura/internal/repository/sector"
	repositoryuser "github.com/compralink/procura/internal/repository/user"
	grpcserver "github.com/compralink/procura/internal/server/grpc"
	httpserver "github.com/compralink/procura/internal/server/http"
	servicebudget "github.com/compralink/procura/internal/service/budget"
	servicecart "github.com/compralink/procura/internal/service/cart"
	serviceorder "github.com/compralink/procura/internal/service/order"
	servicereport "github.com/compralink/procura/internal/service/report"
	transporthttp "github.com/compralink/procura/internal/transport/http"
	"github.com/compralink/procura/internal/worker"
	workerorder "github.com/compralink/procura/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	repositoryproduct.Module,
	repositorysector.Module,
	repositoryuser.Module,
	serviceorder.Module,
	servicecart.Module,
	servicebudget.Module,
	servicereport.Module,
)

// HTTP wires the HTTP and gRPC transports on top of the core modules.
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

// Module is the default application wiring (HTTP only).
var Module = HTTP
