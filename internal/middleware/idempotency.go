package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/josh-kwaku/grey-bank-client/internal/auth"
	"github.com/josh-kwaku/grey-bank-client/internal/handler"
	"github.com/josh-kwaku/grey-bank-client/internal/ledgerstub"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "X-Idempotent-Replayed"
	idempotencyTTL    = 24 * time.Hour
)

type idempotencyCache interface {
	Reserve(key string, userID int64, requestHash string, ttl time.Duration) (*ledgerstub.IdempotencyEntry, bool)
	Complete(key string, userID int64, status int, body []byte)
	Release(key string, userID int64)
}

// Idempotency must run after Auth. A mutation retried with the same key and
// body gets the first response back; the same key with a different body, or
// while the first request is still running, is a 409. Requests without a key
// are not tracked, and 5xx responses are not stored so they can be retried.
func Idempotency(cache idempotencyCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				handler.RespondAppError(w, handler.ErrMissingToken)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				handler.RespondAppError(w, handler.ErrNoData)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fp := fingerprint(r, body)

			prev, reserved := cache.Reserve(key, userID, fp, idempotencyTTL)
			if !reserved {
				switch {
				case prev.RequestHash != fp:
					handler.RespondAppError(w, handler.ErrIdempotencyConflict)
				case prev.InFlight():
					handler.RespondAppError(w, handler.ErrIdempotencyInFlight)
				default:
					replay(w, r, prev)
				}
				return
			}

			completed := false
			defer func() {
				if !completed {
					cache.Release(key, userID)
				}
			}()

			rec := newRecorder(w, true)
			next.ServeHTTP(rec, r)
			if rec.status >= http.StatusInternalServerError {
				return
			}
			cache.Complete(key, userID, rec.status, rec.body.Bytes())
			completed = true
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, e *ledgerstub.IdempotencyEntry) {
	log := logging.FromContext(r.Context())
	log.Info("replaying stored response", "idempotency_key", e.Key, "status", e.StatusCode)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(e.StatusCode)
	if _, err := w.Write(e.ResponseBody); err != nil {
		log.Warn("write replayed response", "error", err, "idempotency_key", e.Key)
	}
}

func fingerprint(r *http.Request, body []byte) string {
	sum := sha256.New()
	io.WriteString(sum, r.Method+" "+r.URL.Path+"\n")
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}
