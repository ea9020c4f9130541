package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	authhandler "nutriflow/auth/internal/auth/handler"
	"nutriflow/auth/internal/telemetry"
	otelemitter "nutriflow/auth/internal/telemetry/otel"
)

// statusRecorder captures the response status for middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Recover converts handler panics into 500 responses so one bad request
// cannot take the server down.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("server: panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				http.Error(w, `{"message":"internal error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Tracing wraps each request in an OTel span and records request count and
// latency on the global meter.
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer("nutriflow/auth/server")
	meter := otel.Meter("nutriflow/auth/server")

	requests, err := meter.Int64Counter("http.server.requests")
	if err != nil {
		log.Printf("server: create request counter: %v", err)
	}
	latency, err := meter.Float64Histogram("http.server.duration",
		metric.WithUnit("ms"))
	if err != nil {
		log.Printf("server: create latency histogram: %v", err)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		attrs := metric.WithAttributes(
			attribute.String("http.route", r.URL.Path),
			attribute.String("http.method", r.Method),
			attribute.Int("http.status_code", rec.status),
		)
		if requests != nil {
			requests.Add(ctx, 1, attrs)
		}
		if latency != nil {
			latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
		}
	})
}

// httpRequestMetadata is the JSON shape stored in Event.Metadata for
// http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry emits one event per request. Best-effort: emission runs async
// and never fails the request. If emitter is nil, the middleware no-ops.
func Telemetry(emitter telemetry.EventEmitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			meta := httpRequestMetadata{
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: rec.status,
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   authhandler.ClientIP(r),
			}
			metaJSON, _ := json.Marshal(meta)
			otelemitter.EmitAsync(emitter, &telemetry.Event{
				EventType: "http_request",
				Source:    "http_middleware",
				Metadata:  metaJSON,
				CreatedAt: time.Now().UTC(),
			})
		})
	}
}
