// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compression

import (
	"bufio"
	"compress/gzip"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
)

const (
	encodingBrotli = "br"
	encodingGzip   = "gzip"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	gzipLevel           int
	brotliLevel         int
	enableGzip          bool
	enableBrotli        bool
	minSize             int
	excludePaths        map[string]bool
	excludeExtensions   map[string]bool
	excludeContentTypes map[string]bool
	logger              *slog.Logger
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		gzipLevel:    gzip.DefaultCompression,
		brotliLevel:  brotli.DefaultCompression,
		enableGzip:   true,
		enableBrotli: true,
		minSize:      1024,
		excludePaths: make(map[string]bool),
		excludeExtensions: map[string]bool{
			".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
			".zip": true, ".gz": true, ".br": true, ".woff2": true,
		},
		excludeContentTypes: map[string]bool{
			"image/png": true, "image/jpeg": true, "image/gif": true, "image/webp": true,
			"application/zip": true, "application/gzip": true, "font/woff2": true,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept-Encoding")

			encoding := cfg.negotiate(r.Header.Get("Accept-Encoding"))
			if encoding == "" || r.Method == http.MethodHead || cfg.excludedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressWriter{ResponseWriter: w, cfg: cfg, encoding: encoding}
			defer func() {
				if rec := recover(); rec != nil {
					// Drop the buffered head so an outer recovery can answer.
					panic(rec)
				}
				if err := cw.Close(); err != nil {
					cfg.logger.Warn("failed to finish compressed response", "error", err, "encoding", encoding)
				}
			}()
			next.ServeHTTP(cw, r)
		})
	}
}

func (c *config) excludedPath(p string) bool {
	return c.excludePaths[p] || c.excludeExtensions[strings.ToLower(path.Ext(p))]
}

func (c *config) excludedType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return c.excludeContentTypes[mt]
}

// negotiate picks brotli over gzip among the codings the client accepts
// with a non-zero quality.
func (c *config) negotiate(header string) string {
	accepted := map[string]bool{}
	for part := range strings.SplitSeq(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				q = f
			}
		}
		accepted[name] = q > 0
	}

	wildcard, listed := accepted["*"]
	accepts := func(enc string) bool {
		if ok, found := accepted[enc]; found {
			return ok
		}
		return listed && wildcard
	}

	switch {
	case c.enableBrotli && accepts(encodingBrotli):
		return encodingBrotli
	case c.enableGzip && accepts(encodingGzip):
		return encodingGzip
	default:
		return ""
	}
}

// compressWriter buffers the first minSize bytes to decide whether the
// response is worth compressing.
type compressWriter struct {
	http.ResponseWriter
	cfg      *config
	encoding string
	status   int
	buf      []byte
	enc      io.WriteCloser
	decided  bool
}

func (cw *compressWriter) WriteHeader(code int) {
	if cw.status == 0 {
		cw.status = code
	}
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	if cw.decided {
		if cw.enc != nil {
			return cw.enc.Write(b)
		}
		return cw.ResponseWriter.Write(b)
	}

	cw.buf = append(cw.buf, b...)
	if len(cw.buf) >= cw.cfg.minSize {
		if err := cw.decide(true); err != nil {
			return 0, err
		}
	}

	return len(b), nil
}

// decide flushes the buffered head uncompressed or through an encoder.
// large reports whether the body reached the minimum size.
func (cw *compressWriter) decide(large bool) error {
	cw.decided = true
	h := cw.Header()
	if h.Get("Content-Type") == "" && len(cw.buf) > 0 {
		h.Set("Content-Type", http.DetectContentType(cw.buf))
	}
	status := cw.status
	if status == 0 {
		status = http.StatusOK
	}

	compress := large &&
		h.Get("Content-Encoding") == "" &&
		status != http.StatusNoContent && status != http.StatusNotModified &&
		!cw.cfg.excludedType(h.Get("Content-Type"))

	if compress {
		h.Del("Content-Length")
		h.Set("Content-Encoding", cw.encoding)
		cw.enc = cw.newEncoder()
	}
	cw.ResponseWriter.WriteHeader(status)

	if len(cw.buf) == 0 {
		return nil
	}
	buf := cw.buf
	cw.buf = nil
	if cw.enc != nil {
		_, err := cw.enc.Write(buf)
		return err
	}
	_, err := cw.ResponseWriter.Write(buf)

	return err
}

func (cw *compressWriter) newEncoder() io.WriteCloser {
	if cw.encoding == encodingBrotli {
		return brotli.NewWriterLevel(cw.ResponseWriter, cw.cfg.brotliLevel)
	}
	gz, err := gzip.NewWriterLevel(cw.ResponseWriter, cw.cfg.gzipLevel)
	if err != nil {
		gz = gzip.NewWriter(cw.ResponseWriter)
	}

	return gz
}

// Close writes a body smaller than the minimum size as is and finishes
// the compressed stream otherwise.
func (cw *compressWriter) Close() error {
	if !cw.decided {
		if cw.status == 0 && len(cw.buf) == 0 {
			return nil
		}
		if err := cw.decide(false); err != nil {
			return err
		}
	}
	if cw.enc != nil {
		return cw.enc.Close()
	}

	return nil
}

func (cw *compressWriter) Flush() {
	if !cw.decided {
		_ = cw.decide(len(cw.buf) >= cw.cfg.minSize)
	}
	type flusher interface{ Flush() error }
	if f, ok := cw.enc.(flusher); ok {
		_ = f.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := cw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}

	return nil, nil, errors.New("underlying ResponseWriter doesn't support Hijack")
}

func (cw *compressWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
