package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Checker-Finance/rfq-engine/internal/store"
)

func RegisterRoutes(app *fiber.App, nc *nats.Conn, st store.Store,
	rfqHandler *RFQHandler,
	orderbookHandler *OrderbookHandler,
	adminHandler *AdminHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"nats":  "ok",
			"store": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		if nc == nil || !nc.IsConnected() {
			checks["nats"] = "disconnected"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		} else if err := nc.FlushTimeout(1 * time.Second); err != nil {
			checks["nats"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := st.HealthCheck(healthCtx); err != nil {
			checks["store"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	v1 := app.Group("/api/v1")

	// RFQ flow
	v1.Post("/requests", rfqHandler.CreateRequestHandler)
	v1.Get("/requests", rfqHandler.QueryRequestsHandler)
	v1.Post("/requests/:requestId/cancel", rfqHandler.CancelRequestHandler)
	v1.Get("/requests/:requestId/quotes", rfqHandler.GetQuotesHandler)
	v1.Post("/quotes", rfqHandler.SubmitQuoteHandler)
	v1.Post("/quotes/:responseId/accept", rfqHandler.AcceptQuoteHandler)
	v1.Put("/executions/:executionId", rfqHandler.UpdateExecutionHandler)
	v1.Get("/stats", rfqHandler.GetStatsHandler)

	// Orderbook
	v1.Post("/orders", orderbookHandler.AddOrderHandler)
	v1.Get("/orders", orderbookHandler.QueryOrdersHandler)
	v1.Put("/orders/:orderId/status", orderbookHandler.UpdateOrderStatusHandler)
	v1.Get("/orders/fillable/:address", orderbookHandler.GetFillableOrdersHandler)

	// Resolver registry
	v1.Post("/resolvers", adminHandler.AddResolverHandler)
	v1.Get("/resolvers", adminHandler.ListResolversHandler)
	v1.Get("/resolvers/:address", adminHandler.GetResolverHandler)
	v1.Put("/resolvers/:address/status", adminHandler.UpdateResolverStatusHandler)
	v1.Delete("/resolvers/:address", adminHandler.RemoveResolverHandler)

	// Predicates
	v1.Post("/predicates", adminHandler.CreatePredicateHandler)
	v1.Get("/predicates/:predicateId", adminHandler.GetPredicateHandler)
	v1.Post("/predicates/:predicateId/cancel", adminHandler.CancelPredicateHandler)
}
