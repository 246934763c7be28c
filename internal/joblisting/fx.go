package joblisting

import (
	"go.uber.org/fx"

	"github.com/hireboard/hireboard/internal/joblisting/repository"
	"github.com/hireboard/hireboard/internal/joblisting/service"
)

// Module wires the job listing repository and lifecycle service.
var Module = fx.Module("joblisting",
	fx.Provide(
		repository.NewRepository,
		service.New,
	),
)
