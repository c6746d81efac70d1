package invoice

import "go.uber.org/fx"

// Module provides the invoice service.
var Module = fx.Provide(NewService)
