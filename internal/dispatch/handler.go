package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kwlab/suggest-gateway/internal/auth"
	"github.com/kwlab/suggest-gateway/internal/provider"
	"github.com/kwlab/suggest-gateway/internal/usage"
	"github.com/kwlab/suggest-gateway/pkg/ratelimit"
)

// extraParamPrefix marks query parameters forwarded to providers as
// extras, e.g. extra.alias=kitchen for Amazon departments.
const extraParamPrefix = "extra."

type Handler struct {
	dispatcher *Dispatcher
	usage      usage.Store
	limiter    *ratelimit.Limiter
	tracer     trace.Tracer
}

func NewHandler(dispatcher *Dispatcher, usageStore usage.Store, limiter *ratelimit.Limiter, tracer trace.Tracer) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		usage:      usageStore,
		limiter:    limiter,
		tracer:     tracer,
	}
}

func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.GetTenantID(ctx)
	if tenantID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	requestID := auth.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	q := r.URL.Query()
	keyword := strings.TrimSpace(q.Get("keyword"))
	if keyword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "keyword is required"})
		return
	}

	req := &provider.Request{
		Keyword:  keyword,
		Language: q.Get("language"),
		Country:  q.Get("country"),
	}
	for key, values := range q {
		if strings.HasPrefix(key, extraParamPrefix) && len(values) > 0 {
			if req.Extras == nil {
				req.Extras = make(map[string]string)
			}
			// Repeated parameters collapse to their first value.
			req.Extras[strings.TrimPrefix(key, extraParamPrefix)] = values[0]
		}
	}

	slugs := splitSlugs(q.Get("providers"))
	if len(slugs) == 0 {
		for _, info := range h.dispatcher.ListProviders() {
			slugs = append(slugs, info.Slug)
		}
	}

	// A single-provider ask for something unregistered is a plain 404;
	// inside a fan-out it degrades to that slug's error instead.
	if len(slugs) == 1 && !h.dispatcher.Has(slugs[0]) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown provider: " + slugs[0]})
		return
	}

	allowed, err := h.limiter.Allow(ctx, tenantID, len(slugs))
	if err != nil || !allowed {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":       "rate limit exceeded",
			"retry_after": "60s",
		})
		return
	}

	spanCtx, span := h.tracer.Start(ctx, "dispatch.suggest")
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("request_id", requestID),
		attribute.String("keyword", keyword),
		attribute.StringSlice("providers", slugs),
	)
	defer span.End()

	start := time.Now()
	outcomes := h.dispatcher.FetchMany(spanCtx, slugs, req)
	latency := time.Since(start)

	succeeded := 0
	failed := 0
	suggestionCount := 0
	for _, outcome := range outcomes {
		if outcome.Error != "" {
			failed++
			continue
		}
		succeeded++
		suggestionCount += len(outcome.Data.Suggestions)
	}
	span.SetAttributes(
		attribute.Int("providers_failed", failed),
		attribute.Int("suggestions", suggestionCount),
	)

	go func() {
		_ = h.usage.LogQuery(context.Background(), &usage.QueryLog{
			TenantID:        tenantID,
			RequestID:       requestID,
			Keyword:         keyword,
			Language:        provider.SanitizeLang(req.Language),
			Country:         provider.SanitizeCountry(req.Country),
			Providers:       slugs,
			FailedProviders: failed,
			SuggestionCount: suggestionCount,
			LatencyMs:       latency.Milliseconds(),
		})
	}()

	// Partial data is still a success; only a full wipe-out is a gateway
	// error.
	status := http.StatusOK
	if succeeded == 0 && len(outcomes) > 0 {
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]any{
		"request_id": requestID,
		"keyword":    keyword,
		"results":    outcomes,
	})
}

func (h *Handler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": h.dispatcher.ListProviders(),
	})
}

func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.GetTenantID(ctx)
	if tenantID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		var err error
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'from' date format (use RFC3339)"})
			return
		}
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		var err error
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'to' date format (use RFC3339)"})
			return
		}
	}

	logs, err := h.usage.GetByTenant(ctx, tenantID, from, to)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	total, err := h.usage.CountByTenant(ctx, tenantID, from, to)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tenant_id":     tenantID,
		"total_queries": total,
		"logs":          logs,
		"from":          from,
		"to":            to,
	})
}

func splitSlugs(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	slugs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			slugs = append(slugs, p)
		}
	}
	return slugs
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
