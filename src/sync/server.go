package sync

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ocean-market/marketd/src/catalog"
	"github.com/ocean-market/marketd/src/orchestrator"
	"github.com/ocean-market/marketd/src/utils/config"
	"github.com/ocean-market/marketd/src/utils/monitoring"
	"github.com/ocean-market/marketd/src/utils/task"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rest API server, serves the catalog view, history and monitor counters
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine

	catalog      *catalog.Catalog
	history      *catalog.History
	orchestrator *orchestrator.Orchestrator
	monitor      monitoring.Monitor
}

func NewServer(config *config.Config) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, "server").
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	if !config.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	self.Router = gin.New()

	self.httpServer = &http.Server{
		Addr:    self.Config.RESTListenAddress,
		Handler: self.Router,
	}

	return
}

func (self *Server) WithCatalog(catalog *catalog.Catalog) *Server {
	self.catalog = catalog
	return self
}

func (self *Server) WithHistory(history *catalog.History) *Server {
	self.history = history
	return self
}

func (self *Server) WithOrchestrator(orchestrator *orchestrator.Orchestrator) *Server {
	self.orchestrator = orchestrator
	return self
}

func (self *Server) WithMonitor(monitor monitoring.Monitor) *Server {
	self.monitor = monitor
	return self
}

func (self *Server) routes() (err error) {
	registry := prometheus.NewRegistry()
	err = registry.Register(self.monitor.GetPrometheusCollector())
	if err != nil {
		self.Log.WithError(err).Error("Failed to register prometheus collector")
		return
	}

	v1 := self.Router.Group("v1")
	{
		v1.GET("assets", self.onGetAssets)
		v1.GET("transactions", self.onGetTransactions)
		v1.GET("attempts", self.onGetAttempts)
		v1.GET("attempts/:asset_id", self.onGetAttempt)
		v1.GET("health", self.onGetHealth)
		v1.GET("metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	return
}

func (self *Server) run() (err error) {
	err = self.routes()
	if err != nil {
		return
	}

	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start REST server")
		return
	}
	return nil
}

func (self *Server) onGetAssets(c *gin.Context) {
	snapshot := self.catalog.Current()
	c.JSON(http.StatusOK, gin.H{
		"generation": snapshot.Generation,
		"stale":      self.catalog.Stale(),
		"created_at": snapshot.CreatedAt,
		"assets":     snapshot.Assets,
	})
}

func (self *Server) onGetTransactions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transactions": self.history.List()})
}

func (self *Server) onGetAttempts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"attempts": self.orchestrator.Attempts()})
}

func (self *Server) onGetAttempt(c *gin.Context) {
	assetId, err := strconv.ParseUint(c.Param("asset_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed asset id"})
		return
	}

	attempt, ok := self.orchestrator.Attempt(assetId)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no attempt for this asset"})
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (self *Server) onGetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, self.monitor.GetReport())
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown REST server")
		return
	}
}
