package session

import "go.uber.org/fx"

// Module provides the session service.
var Module = fx.Provide(NewService)
