package auth

import "go.uber.org/fx"

// Module provides the token issuer to Fx.
var Module = fx.Provide(NewIssuer)
