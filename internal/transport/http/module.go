package http

import (
	"go.uber.org/fx"

	carttransport "github.com/compralink/procura/internal/transport/http/cart"
	ordertransport "github.com/compralink/procura/internal/transport/http/order"
	reporttransport "github.com/compralink/procura/internal/transport/http/report"
	sectortransport "github.com/compralink/procura/internal/transport/http/sector"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	carttransport.Module,
	ordertransport.Module,
	sectortransport.Module,
	reporttransport.Module,
)
