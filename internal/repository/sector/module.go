package sector

import "go.uber.org/fx"

// Module provides the sector repository to Fx.
var Module = fx.Provide(NewRepository)
