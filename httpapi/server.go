package httpapi

import "github.com/gin-gonic/gin"

// NewRouter wires the API routes onto a gin engine.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthcheck", healthCheck)

	api := router.Group("/api/v1")
	{
		api.POST("/payments", h.createPayment)
		api.GET("/payments/:id", h.getPayment)
		api.GET("/payments/:id/actions", h.paymentActions)
		api.POST("/payments/:id/transitions", h.transitionPayment)

		api.POST("/payouts", h.createPayout)
		api.GET("/payouts", h.listPayouts)
		api.GET("/payouts/:id", h.getPayout)
		api.POST("/payouts/:id/transitions", h.transitionPayout)
		api.POST("/payouts/:id/reconcile", h.reconcilePayout)

		api.GET("/events/stream", h.eventStream)
	}

	return router
}
