package httpapi

import (
	"io"
	"net/http"

	zlog "github.com/rs/zerolog/log"
)

const proxyChunkSize = 8 * 1024

// Upstream headers copied to the client when present.
var passThroughHeaders = []string{"Content-Range", "Accept-Ranges", "Content-Length", "Content-Disposition"}

// handleProxyAudio streams an audio URL to the client with browser-like
// request headers, forwarding Range so clients can seek and resume.
func (s *Server) handleProxyAudio(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "No URL provided.", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, nil)
	if err != nil {
		http.Error(w, "Invalid audio URL.", http.StatusBadRequest)
		return
	}
	req.Header.Set("User-Agent", s.proxy.UserAgent)
	req.Header.Set("Referer", s.proxy.Referer)
	req.Header.Set("Accept", s.proxy.Accept)
	if rng := r.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := s.upstream.Do(req)
	if err != nil {
		zlog.Warn().Err(err).Msg("httpapi: proxy upstream request failed")
		http.Error(w, "Error fetching audio URL.", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		http.Error(w, "Access forbidden. The audio host rejected the request.", http.StatusForbidden)
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/webm"
	}
	h.Set("Content-Type", contentType)
	h.Set("Accept-Ranges", "bytes")
	for _, name := range passThroughHeaders {
		if v := resp.Header.Get(name); v != "" {
			h.Set(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, proxyChunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				zlog.Debug().Err(werr).Msg("httpapi: proxy client went away")
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr == io.EOF {
			return
		}
		if rerr != nil {
			zlog.Warn().Err(rerr).Msg("httpapi: proxy streaming error")
			return
		}
	}
}
