package audit

import (
	auditdomain "github.com/smallbiznis/toko/internal/audit/domain"
	"github.com/smallbiznis/toko/internal/audit/repository"
	"github.com/smallbiznis/toko/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s auditdomain.Service) auditdomain.Recorder { return s }),
)
