package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calderaworks/mes-backend/api/controllers"
	"github.com/calderaworks/mes-backend/api/middleware"
	"github.com/calderaworks/mes-backend/internal/bom"
	"github.com/calderaworks/mes-backend/internal/inventory"
	"github.com/calderaworks/mes-backend/internal/items"
	"github.com/calderaworks/mes-backend/internal/workorders"
	"github.com/calderaworks/mes-backend/pkg/config"
	"github.com/calderaworks/mes-backend/pkg/db"
	"github.com/calderaworks/mes-backend/pkg/logger"
	"github.com/calderaworks/mes-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	itemService items.Service,
	bomService bom.Service,
	inventoryService inventory.Service,
	receiptService inventory.ReceiptService,
	workOrderService workorders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	var redisPinger redis.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/items", func(r chi.Router) {
			r.Post("/", controllers.ItemCreate(itemService, logg))
			r.Get("/", controllers.ItemList(itemService, logg))
			r.Get("/{itemId}", controllers.ItemDetail(itemService, logg))
			r.Get("/{itemId}/explosion", controllers.ItemExplosion(bomService, logg))
		})

		r.Route("/boms", func(r chi.Router) {
			r.Post("/", controllers.BOMCreate(bomService, logg))
			r.Post("/{bomId}/components", controllers.BOMAddComponent(bomService, logg))
			r.Get("/{bomId}/components", controllers.BOMComponents(bomService, logg))
		})

		r.Route("/work-orders", func(r chi.Router) {
			r.Post("/", controllers.WorkOrderCreate(workOrderService, logg))
			r.Get("/", controllers.WorkOrderList(workOrderService, logg))
			r.Get("/{workOrderId}", controllers.WorkOrderDetail(workOrderService, logg))
			r.Post("/{workOrderId}/start", controllers.WorkOrderStart(workOrderService, logg))
			r.Post("/{workOrderId}/complete", controllers.WorkOrderComplete(workOrderService, logg))
			r.Post("/{workOrderId}/hold", controllers.WorkOrderHold(workOrderService, logg))
			r.Post("/{workOrderId}/resume", controllers.WorkOrderResume(workOrderService, logg))
			r.Post("/{workOrderId}/cancel", controllers.WorkOrderCancel(workOrderService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/receipts", controllers.InventoryReceipt(receiptService, logg))
			r.Get("/balances", controllers.InventoryBalances(inventoryService, logg))
			r.Get("/items/{itemId}/transactions", controllers.InventoryTransactions(inventoryService, logg))
		})
	})

	return r
}
