package http

import (
	"go.uber.org/fx"

	authtransport "github.com/Additional-Code/procura/internal/transport/http/auth"
	ordertransport "github.com/Additional-Code/procura/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	authtransport.Module,
	ordertransport.Module,
)
