package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rizzbot-app/rizzbot/config"
)

// GeminiHandler is a reverse proxy to the generative-language API. The
// server-held API key replaces whatever credential the caller supplied, in
// both the query string and the header, and is never echoed back.
type GeminiHandler struct {
	cfg    config.GeminiConfig
	client *http.Client
	logger *log.Logger
}

func NewGeminiHandler(cfg config.GeminiConfig) *GeminiHandler {
	return &GeminiHandler{
		cfg: cfg,
		// No client timeout: upstream responses may stream for minutes.
		client: &http.Client{},
		logger: log.New(log.Writer(), "[PROXY] ", log.LstdFlags),
	}
}

func (h *GeminiHandler) Register(g *echo.Group) {
	g.Any("", h.proxy)
	g.Any("/*", h.proxy)
}

func (h *GeminiHandler) proxy(c echo.Context) error {
	rest := c.Param("*")
	if rest == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing path")
	}
	if h.cfg.APIKey == "" {
		h.logger.Printf("gemini api key not found in configuration")
		return echo.NewHTTPError(http.StatusInternalServerError, "gemini api key not configured")
	}

	upstream, err := url.Parse(h.cfg.UpstreamURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "invalid upstream url")
	}
	upstream.Path = "/" + rest

	// Copy all query parameters except the caller's credential, then inject
	// the server-held key.
	query := url.Values{}
	for k, vs := range c.QueryParams() {
		if k == "key" {
			continue
		}
		query[k] = vs
	}
	query.Set("key", h.cfg.APIKey)
	upstream.RawQuery = query.Encode()

	req := c.Request()
	var body io.Reader
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		body = req.Body
	}
	out, err := http.NewRequestWithContext(req.Context(), req.Method, upstream.String(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "build upstream request")
	}
	out.Header = req.Header.Clone()
	out.Header.Del("Host")
	// Replace any placeholder credential the client sent.
	out.Header.Set("x-goog-api-key", h.cfg.APIKey)
	out.ContentLength = req.ContentLength

	reqID := uuid.NewString()
	c.Response().Header().Set("X-Request-Id", reqID)

	resp, err := h.client.Do(out)
	if err != nil {
		msg := sanitizeProxyError(err)
		h.logger.Printf("request %s: upstream %s %s: %s", reqID, req.Method, rest, msg)
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Proxy Error",
			"message": msg,
		})
	}
	defer resp.Body.Close()

	header := c.Response().Header()
	for k, vs := range resp.Header {
		// The CORS middleware owns these; blindly adding the upstream's copy
		// would duplicate values like Access-Control-Allow-Origin.
		if strings.HasPrefix(k, "Access-Control-") && header.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	c.Response().WriteHeader(resp.StatusCode)
	// Forward incrementally so SSE token streams reach the client as they
	// arrive instead of buffering the whole upstream body.
	flushCopy(c.Response(), resp.Body)
	return nil
}

// sanitizeProxyError strips the upstream URL (which carries the injected
// credential) from transport errors before they reach the caller.
func sanitizeProxyError(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err.Error()
	}
	return err.Error()
}

func flushCopy(w *echo.Response, r io.Reader) {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			w.Flush()
		}
		if err != nil {
			return
		}
	}
}
