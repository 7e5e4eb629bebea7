package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"payflow/eventcache"
	"payflow/logger"
	"payflow/payment"
	"payflow/payout"
	"payflow/stream"
)

// Freshness tells a caller whether the data came straight from the store or
// from the realtime cache, and how stale it may be.
type Freshness struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // live | cache | fallback
	MaxAgeMs  int64     `json:"maxAgeMs"`
}

const cacheMaxAge = 5 * time.Second

type envelope struct {
	Data      any       `json:"data"`
	Freshness Freshness `json:"freshness"`
}

func live(data any) envelope {
	return envelope{Data: data, Freshness: Freshness{Timestamp: time.Now(), Source: "live"}}
}

func cached(data any, at time.Time) envelope {
	return envelope{Data: data, Freshness: Freshness{
		Timestamp: at,
		Source:    "cache",
		MaxAgeMs:  cacheMaxAge.Milliseconds(),
	}}
}

// Handler exposes the payment and payout services over HTTP.
type Handler struct {
	payments *payment.Service
	payouts  *payout.Service
	cache    eventcache.Cache
	feed     *Feed
	log      *logger.Logger
}

func NewHandler(payments *payment.Service, payouts *payout.Service, cache eventcache.Cache, feed *Feed, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{payments: payments, payouts: payouts, cache: cache, feed: feed, log: log}
}

type createPaymentRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	MerchantID     string            `json:"merchantId"`
	CustomerID     string            `json:"customerId"`
	Metadata       map[string]string `json:"metadata"`
	IdempotencyKey string            `json:"idempotencyKey"`
}

func (h *Handler) createPayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Code:    "INVALID_REQUEST",
			Message: "request body is not valid JSON: " + err.Error(),
		}})
		return
	}

	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		key = req.IdempotencyKey
	}

	result, err := h.payments.Create(c.Request.Context(), payment.CreateParams{
		Amount:     req.Amount,
		Currency:   req.Currency,
		MerchantID: req.MerchantID,
		CustomerID: req.CustomerID,
		Metadata:   req.Metadata,
	}, key)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
		c.Header("Idempotent-Replay", "true")
	}
	c.JSON(status, live(paymentView(result.Payment)))
}

type transitionPaymentRequest struct {
	TargetStatus    string `json:"targetStatus"`
	ExpectedVersion *int64 `json:"expectedVersion"`
	FailureCode     string `json:"failureCode"`
	FailureMessage  string `json:"failureMessage"`
}

func (h *Handler) transitionPayment(c *gin.Context) {
	var req transitionPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Code:    "INVALID_REQUEST",
			Message: "request body is not valid JSON: " + err.Error(),
		}})
		return
	}

	p, err := h.payments.Transition(c.Request.Context(), c.Param("id"), payment.Status(req.TargetStatus), payment.TransitionParams{
		ExpectedVersion: req.ExpectedVersion,
		FailureCode:     req.FailureCode,
		FailureMessage:  req.FailureMessage,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, live(paymentView(p)))
}

func (h *Handler) getPayment(c *gin.Context) {
	id := c.Param("id")
	p, err := h.payments.Get(c.Request.Context(), id)
	if err == nil {
		c.JSON(http.StatusOK, live(paymentView(p)))
		return
	}

	// Store miss or store trouble: fall back to the realtime cache so the
	// dashboard keeps rendering, clearly labeled as cached.
	if h.cache != nil {
		if entry, ok, cacheErr := h.cache.Get(c.Request.Context(), id); cacheErr == nil && ok {
			c.JSON(http.StatusOK, cached(json.RawMessage(entry.Payload), entry.ReceivedAt))
			return
		}
	}
	writeError(c, err)
}

func (h *Handler) paymentActions(c *gin.Context) {
	p, err := h.payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	type actionView struct {
		TargetStatus string   `json:"targetStatus"`
		Action       string   `json:"action"`
		Description  string   `json:"description"`
		SideEffects  []string `json:"sideEffects"`
		Destructive  bool     `json:"destructive"`
	}
	actions := []actionView{}
	for _, t := range h.payments.AvailableActions(p.Status) {
		actions = append(actions, actionView{
			TargetStatus: string(t.To),
			Action:       t.Action,
			Description:  t.Description,
			SideEffects:  t.SideEffects,
			Destructive:  t.Destructive,
		})
	}
	c.JSON(http.StatusOK, live(actions))
}

type createPayoutRequest struct {
	MerchantID     string `json:"merchantId"`
	Currency       string `json:"currency"`
	BankAccount    string `json:"bankAccount"`
	SettlementDays int    `json:"settlementDays"`
	Items          []struct {
		Amount int64 `json:"amount"`
		Fee    int64 `json:"fee"`
	} `json:"items"`
}

func (h *Handler) createPayout(c *gin.Context) {
	var req createPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Code:    "INVALID_REQUEST",
			Message: "request body is not valid JSON: " + err.Error(),
		}})
		return
	}

	params := payout.CreateParams{
		MerchantID:     req.MerchantID,
		Currency:       req.Currency,
		BankAccount:    req.BankAccount,
		SettlementDays: req.SettlementDays,
	}
	for _, it := range req.Items {
		params.Items = append(params.Items, payout.ItemParams{Amount: it.Amount, Fee: it.Fee})
	}

	b, err := h.payouts.Create(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, live(payoutView(b)))
}

func (h *Handler) getPayout(c *gin.Context) {
	b, err := h.payouts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, live(payoutView(b)))
}

func (h *Handler) listPayouts(c *gin.Context) {
	batches, err := h.payouts.List(c.Request.Context(), 100)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]payoutJSON, 0, len(batches))
	for _, b := range batches {
		views = append(views, payoutView(b))
	}
	c.JSON(http.StatusOK, live(views))
}

type transitionPayoutRequest struct {
	TargetStatus    string `json:"targetStatus"`
	ExpectedVersion *int64 `json:"expectedVersion"`
}

func (h *Handler) transitionPayout(c *gin.Context) {
	var req transitionPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Code:    "INVALID_REQUEST",
			Message: "request body is not valid JSON: " + err.Error(),
		}})
		return
	}

	b, err := h.payouts.Transition(c.Request.Context(), c.Param("id"), payout.Status(req.TargetStatus), req.ExpectedVersion)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, live(payoutView(b)))
}

type reconcilePayoutRequest struct {
	ResolvedStatus  string `json:"resolvedStatus"`
	Notes           string `json:"notes"`
	SettledAmount   *int64 `json:"settledAmount"`
	ExpectedVersion *int64 `json:"expectedVersion"`
}

func (h *Handler) reconcilePayout(c *gin.Context) {
	var req reconcilePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Code:    "INVALID_REQUEST",
			Message: "request body is not valid JSON: " + err.Error(),
		}})
		return
	}

	b, err := h.payouts.Reconcile(c.Request.Context(), c.Param("id"), payout.ReconcileParams{
		ResolvedStatus:  payout.Status(req.ResolvedStatus),
		Notes:           req.Notes,
		SettledAmount:   req.SettledAmount,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, live(payoutView(b)))
}

// eventStream serves the SSE feed: one connected event, then heartbeats and
// domain events, each framed as a data line.
func (h *Handler) eventStream(c *gin.Context) {
	sub := h.feed.Subscribe()
	defer h.feed.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("message", toJSON(ev))
			return true
		}
	})
}

func toJSON(ev stream.Event) string {
	b, err := json.Marshal(ev)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
