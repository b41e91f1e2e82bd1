package product

import (
	"github.com/smallbiznis/toko/internal/product/domain"
	"github.com/smallbiznis/toko/internal/product/repository"
	"github.com/smallbiznis/toko/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s domain.Service) domain.StockKeeper { return s }),
)
