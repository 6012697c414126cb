// Package api handles HTTP and WebSocket API endpoints
package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/thereceipt/parcel-receipt/internal/command"
	"github.com/thereceipt/parcel-receipt/internal/desk"
	"github.com/thereceipt/parcel-receipt/internal/ledger"
	"github.com/thereceipt/parcel-receipt/internal/metrics"
	"github.com/thereceipt/parcel-receipt/internal/printer"
)

// Server is the API server
type Server struct {
	router   *gin.Engine
	desk     *desk.Desk
	executor *command.Executor
	metrics  *metrics.Metrics
	lg       *zap.Logger
	hub      *Hub
	upgrader websocket.Upgrader
	unsub    func()
}

// NewServer creates a new API server. m may be nil.
func NewServer(d *desk.Desk, executor *command.Executor, m *metrics.Metrics, lg *zap.Logger) *Server {
	if lg == nil {
		lg = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(lg))
	router.Use(requestMetrics(m))
	router.Use(corsMiddleware())

	server := &Server{
		router:   router,
		desk:     d,
		executor: executor,
		metrics:  m,
		lg:       lg,
		hub:      NewHub(lg),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	server.unsub = d.Session.Subscribe(server.hub.BroadcastSession)

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	receipt := s.router.Group("/receipt")
	receipt.GET("", s.handleGetReceipt)
	receipt.PUT("/customer", s.handleSetCustomer)
	receipt.POST("/items", s.handleAddItem)
	receipt.PUT("/items/:id", s.handleUpdateItem)
	receipt.DELETE("/items/:id", s.handleRemoveItem)
	receipt.GET("/totals", s.handleGetTotals)
	receipt.POST("/number", s.handleReserveNumber)
	receipt.GET("/preview.png", s.handlePreviewPNG)
	receipt.GET("/preview.txt", s.handlePreviewText)
	receipt.GET("/document", s.handleDocument)
	receipt.POST("/reset", s.handleReset)

	s.router.POST("/print", s.handlePrint)
	s.router.GET("/printers", s.handleGetPrinters)
	s.router.GET("/printers/scan", s.handleScanPrinters)
	s.router.GET("/jobs", s.handleGetJobs)
	s.router.GET("/job/:id", s.handleGetJob)

	s.router.POST("/command", s.handleCommand)

	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// BroadcastJob pushes a print job change to websocket clients.
func (s *Server) BroadcastJob(job printer.PrintJob) {
	s.hub.Broadcast(WSMessage{Event: EventJob, Data: job})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.lg.Info("API server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

// Close detaches from the session and disconnects websocket clients.
func (s *Server) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	s.hub.Close()
}

type receiptResponse struct {
	Snapshot ledger.Snapshot `json:"snapshot"`
	Totals   ledger.Totals   `json:"totals"`
	Stamp    any             `json:"stamp"`
}

func (s *Server) current() receiptResponse {
	resp := receiptResponse{
		Snapshot: s.desk.Session.Snapshot(),
		Totals:   s.desk.Session.Totals(),
	}
	if st := s.desk.Session.CurrentStamp(); st != nil {
		resp.Stamp = st
	}
	return resp
}

func (s *Server) handleGetReceipt(c *gin.Context) {
	c.JSON(http.StatusOK, s.current())
}

func (s *Server) handleSetCustomer(c *gin.Context) {
	var req struct {
		CustomerName string `json:"customer_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.desk.Session.SetCustomerName(req.CustomerName)
	c.JSON(http.StatusOK, gin.H{"customer_name": req.CustomerName})
}

func (s *Server) handleAddItem(c *gin.Context) {
	var f ledger.Fields
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := s.desk.Session.AddItem(f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(c *gin.Context) {
	var f ledger.Fields
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := s.desk.Session.UpdateItem(c.Param("id"), f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleRemoveItem(c *gin.Context) {
	s.desk.Session.RemoveItem(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetTotals(c *gin.Context) {
	c.JSON(http.StatusOK, s.desk.Session.Totals())
}

func (s *Server) handleReserveNumber(c *gin.Context) {
	stamp, err := s.desk.Session.Stamp(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stamp)
}

func (s *Server) handlePreviewPNG(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.desk.PreviewPNG(c.Request.Context(), &buf); err != nil {
		s.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handlePreviewText(c *gin.Context) {
	width, _ := strconv.Atoi(c.Query("width"))

	text, err := s.desk.PreviewText(c.Request.Context(), width)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.String(http.StatusOK, text)
}

func (s *Server) handleDocument(c *gin.Context) {
	job, err := s.desk.Document(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if c.Query("format") == "receipt" {
		data, err := job.Document.ToJSON()
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+job.Data.Vars["receipt_number"]+`.receipt"`)
		c.Data(http.StatusOK, "application/json", data)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document": job.Document,
		"data":     job.Data,
	})
}

func (s *Server) handleReset(c *gin.Context) {
	s.desk.Session.Reset()
	c.JSON(http.StatusOK, s.current())
}

// handlePrint queues the current receipt on a printer
func (s *Server) handlePrint(c *gin.Context) {
	var req struct {
		PrinterID string `json:"printer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "printer_id is required"})
		return
	}

	res, err := s.desk.Print(c.Request.Context(), req.PrinterID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

func (s *Server) handleGetPrinters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"printers": s.desk.Printers.All()})
}

func (s *Server) handleScanPrinters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"printers": printer.Discover(s.lg)})
}

func (s *Server) handleGetJobs(c *gin.Context) {
	jobs := []printer.PrintJob{}
	if s.desk.Queue != nil {
		jobs = s.desk.Queue.Jobs()
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleGetJob(c *gin.Context) {
	if s.desk.Queue == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	job, ok := s.desk.Queue.Job(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleCommand handles command execution requests
func (s *Server) handleCommand(c *gin.Context) {
	var req struct {
		Command string `json:"command" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command is required"})
		return
	}

	result := s.executor.Execute(c.Request.Context(), req.Command)
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// writeError maps domain errors to status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var vErr *ledger.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "field": vErr.Field})
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, printer.ErrUnknownPrinter):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.lg.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func requestLogger(lg *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		lg.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("client", c.ClientIP()),
		)
	}
}

func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
