package customer

import (
	"github.com/smallbiznis/toko/internal/customer/domain"
	"github.com/smallbiznis/toko/internal/customer/repository"
	"github.com/smallbiznis/toko/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s domain.Service) domain.Lookup { return s }),
)
