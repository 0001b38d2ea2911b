package middleware

import (
	"net/http"
	"time"

	"github.com/agentnetwork/agent-gateway/internal/telemetry"
	"github.com/agentnetwork/agent-gateway/internal/util/logger"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Publisher is the minimal interface middlewares need.
type Publisher interface {
	Publish(any)
}

// RequestAuditMW logs every request and ships a RequestAuditEvent to the
// configured Publisher (the Kafka shipper in our wiring).
type RequestAuditMW struct {
	Shipper Publisher
}

func NewRequestAuditMW(shipper Publisher) *RequestAuditMW {
	return &RequestAuditMW{Shipper: shipper}
}

func (m *RequestAuditMW) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &wrapWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		requestID := chimw.GetReqID(r.Context())
		logger.Info("request_audit path=%s method=%s status=%d latency_ms=%d request_id=%s",
			r.URL.Path, r.Method, ww.status, time.Since(start).Milliseconds(), requestID)

		if m.Shipper != nil {
			m.Shipper.Publish(telemetry.RequestAuditEvent{
				Timestamp:  time.Now().UTC(),
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     ww.status,
				DurationMs: time.Since(start).Milliseconds(),
				RequestID:  requestID,
			})
		}
	})
}

type wrapWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrapWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
