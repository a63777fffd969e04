// Package proxy serves a local reverse proxy that forwards API calls upstream
// with the session's bearer token attached.
package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/NordCoder/exsplit/internal/domain/auth"
)

// NewHandler proxies every request to upstream through rt, which is expected to
// be an interceptor.Transport.
func NewHandler(upstream *url.URL, rt http.RoundTripper, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "proxy"))

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del("Cookie")
		},
		Transport: rt,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, auth.ErrAuthentication) {
				writeError(w, http.StatusUnauthorized, auth.ErrAuthentication.Error())
				return
			}
			log.Warn("upstream error", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, http.StatusBadGateway, "upstream unavailable")
		},
	}
	return otelhttp.NewHandler(rp, "proxy")
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
