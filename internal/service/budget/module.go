package budget

import "go.uber.org/fx"

// Module provides the budget service to Fx.
var Module = fx.Provide(NewService)
