package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/toko/internal/order/domain"
	"github.com/smallbiznis/toko/internal/providers/pdf"
	reportingdomain "github.com/smallbiznis/toko/internal/reporting/domain"
	"github.com/smallbiznis/toko/pkg/db/pagination"
)

type placeOrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	CustomerID    string           `json:"customer_id"`
	PaymentStatus string           `json:"payment_status"`
	Lines         []placeOrderLine `json:"lines"`
}

func (s *Server) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lines := make([]orderdomain.Line, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, orderdomain.Line{
			ProductID: strings.TrimSpace(line.ProductID),
			Quantity:  line.Quantity,
		})
	}

	resp, err := s.orderSvc.Place(c.Request.Context(), orderdomain.PlaceRequest{
		CustomerID:    strings.TrimSpace(req.CustomerID),
		PaymentStatus: strings.TrimSpace(req.PaymentStatus),
		Lines:         lines,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		StartDate     string `form:"start_date"`
		EndDate       string `form:"end_date"`
		PaymentStatus string `form:"payment_status"`
		Search        string `form:"search"`
		PageToken     string `form:"page_token"`
		PageSize      int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		StartDate:     strings.TrimSpace(query.StartDate),
		EndDate:       strings.TrimSpace(query.EndDate),
		PaymentStatus: strings.TrimSpace(query.PaymentStatus),
		Search:        strings.TrimSpace(query.Search),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrder(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.orderSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateOrderRequest struct {
	PaymentStatus string `json:"payment_status"`
}

func (s *Server) UpdateOrderPaymentStatus(c *gin.Context) {
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.UpdatePaymentStatus(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(req.PaymentStatus),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteOrder(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.orderSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) OrderInvoicePDF(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	order, err := s.orderSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]pdf.InvoiceItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, pdf.InvoiceItem{
			Product:   item.ProductName,
			Qty:       item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  item.Subtotal.StringFixed(2),
		})
	}

	reader, err := s.pdfProvider.GenerateInvoice(c.Request.Context(), pdf.InvoiceData{
		ShopName:      s.cfg.AppName,
		InvoiceNumber: order.InvoiceID,
		IssueDate:     order.CreatedAt.Format("2006-01-02"),
		PaymentStatus: order.PaymentStatus,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Items:         items,
		Total:         order.TotalAmount.StringFixed(2),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+order.InvoiceID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

func (s *Server) ExportOrders(c *gin.Context) {
	var query struct {
		Report string `form:"report"`
		Format string `form:"format"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	report := strings.TrimSpace(query.Report)
	if report == "" {
		report = reportingdomain.ReportTotalSummary
	}
	format := strings.TrimSpace(query.Format)
	if format == "" {
		format = reportingdomain.FormatCSV
	}

	export, err := s.reportingSvc.Export(c.Request.Context(), reportingdomain.ExportRequest{
		Report: report,
		Format: format,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Data)
}
