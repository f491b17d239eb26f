package product

import "go.uber.org/fx"

// Module provides the product repository to Fx.
var Module = fx.Provide(NewRepository)
