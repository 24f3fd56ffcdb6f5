package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// RequestTimeInterceptor logs the method, path, status and duration of each request.
func RequestTimeInterceptor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logrus.Infof("request time: %s %s %d: %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}
