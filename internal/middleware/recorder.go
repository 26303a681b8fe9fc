package middleware

import (
	"bytes"
	"net/http"
)

// recorder notes the status written by the wrapped handler and, when body is
// non-nil, keeps a copy of everything written.
type recorder struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func newRecorder(w http.ResponseWriter, keepBody bool) *recorder {
	rec := &recorder{ResponseWriter: w, status: http.StatusOK}
	if keepBody {
		rec.body = &bytes.Buffer{}
	}
	return rec
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.body != nil {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}
