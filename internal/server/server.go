package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/toko/internal/actorcontext"
	"github.com/smallbiznis/toko/internal/audit"
	auditdomain "github.com/smallbiznis/toko/internal/audit/domain"
	"github.com/smallbiznis/toko/internal/config"
	"github.com/smallbiznis/toko/internal/customer"
	customerdomain "github.com/smallbiznis/toko/internal/customer/domain"
	"github.com/smallbiznis/toko/internal/observability"
	obsmiddleware "github.com/smallbiznis/toko/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/toko/internal/observability/metrics"
	obstracing "github.com/smallbiznis/toko/internal/observability/tracing"
	"github.com/smallbiznis/toko/internal/order"
	orderdomain "github.com/smallbiznis/toko/internal/order/domain"
	"github.com/smallbiznis/toko/internal/product"
	productdomain "github.com/smallbiznis/toko/internal/product/domain"
	"github.com/smallbiznis/toko/internal/providers/pdf"
	"github.com/smallbiznis/toko/internal/reporting"
	reportingdomain "github.com/smallbiznis/toko/internal/reporting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	product.Module,
	customer.Module,
	order.Module,
	reporting.Module,
	pdf.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	productSvc   productdomain.Service
	customerSvc  customerdomain.Service
	orderSvc     orderdomain.Service
	auditSvc     auditdomain.Service
	reportingSvc reportingdomain.Service
	pdfProvider  pdf.Provider
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	ProductSvc   productdomain.Service
	CustomerSvc  customerdomain.Service
	OrderSvc     orderdomain.Service
	AuditSvc     auditdomain.Service
	ReportingSvc reportingdomain.Service
	PDFProvider  pdf.Provider
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		productSvc:   p.ProductSvc,
		customerSvc:  p.CustomerSvc,
		orderSvc:     p.OrderSvc,
		auditSvc:     p.AuditSvc,
		reportingSvc: p.ReportingSvc,
		pdfProvider:  p.PDFProvider,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(ActorMiddleware())

	orders := api.Group("/orders")
	{
		orders.POST("", s.PlaceOrder)
		orders.GET("", s.ListOrders)
		orders.GET("/export", s.ExportOrders)
		orders.GET("/:id", s.GetOrder)
		orders.PATCH("/:id", s.UpdateOrderPaymentStatus)
		orders.DELETE("/:id", RequireRole(actorcontext.RoleManager), s.DeleteOrder)
		orders.GET("/:id/invoice", s.OrderInvoicePDF)
	}

	products := api.Group("/products")
	{
		products.GET("", s.ListProducts)
		products.GET("/low_stock", s.ListLowStockProducts)
		products.GET("/:id", s.GetProduct)
		products.POST("", RequireRole(actorcontext.RoleManager), s.CreateProduct)
		products.PUT("/:id", RequireRole(actorcontext.RoleManager), s.UpdateProduct)
		products.DELETE("/:id", RequireRole(actorcontext.RoleManager), s.DeactivateProduct)
		products.POST("/:id/activate", RequireRole(actorcontext.RoleManager), s.ReactivateProduct)
	}

	customers := api.Group("/customers")
	{
		customers.POST("", s.CreateCustomer)
		customers.GET("", s.ListCustomers)
		customers.GET("/:id", s.GetCustomer)
		customers.PUT("/:id", s.UpdateCustomer)
	}

	api.GET("/audit-logs", RequireRole(actorcontext.RoleManager), s.ListAuditLogs)
	api.GET("/dashboard", s.Dashboard)
}
