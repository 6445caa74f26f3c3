package drivers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/Comcast/rxfsm/stream"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/net/publicsuffix"
)

// HTTPRequest is what a machine sends to the HTTP driver.
type HTTPRequest struct {
	Id        string              `json:"id,omitempty" mapstructure:"id"`
	Method    string              `json:"method,omitempty" mapstructure:"method"`
	URL       string              `json:"url" mapstructure:"url"`
	Body      string              `json:"body,omitempty" mapstructure:"body"`
	Headers   map[string][]string `json:"headers,omitempty" mapstructure:"headers"`
	TimeoutMS int                 `json:"timeout,omitempty" mapstructure:"timeout"`
}

// HTTPResponse is what the HTTP driver sends back.
//
// Failures are reported in Error rather than failing the source.
type HTTPResponse struct {
	Id         string              `json:"id,omitempty"`
	StatusCode int                 `json:"statusCode"`
	Status     string              `json:"status"`
	Error      string              `json:"error,omitempty"`
	Headers    map[string][]string `json:"headers,omitempty"`
	Body       string              `json:"body,omitempty"`
}

// Map returns the response as a JSON object.
func (r *HTTPResponse) Map() map[string]interface{} {
	m := map[string]interface{}{
		"statusCode": float64(r.StatusCode),
		"status":     r.Status,
		"body":       r.Body,
	}
	if r.Id != "" {
		m["id"] = r.Id
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	if r.Headers != nil {
		hs := make(map[string]interface{}, len(r.Headers))
		for k, vs := range r.Headers {
			acc := make([]interface{}, len(vs))
			for i, v := range vs {
				acc[i] = v
			}
			hs[k] = acc
		}
		m["headers"] = hs
	}
	return m
}

// HTTP makes requests with a client that keeps cookies.
type HTTP struct {
	Client *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewHTTP makes an HTTP with a cookie jar.
func NewHTTP() (*HTTP, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &HTTP{
		Client: &http.Client{Jar: jar},
	}, nil
}

func (h *HTTP) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Do makes the request.
func (h *HTTP) Do(ctx context.Context, r *HTTPRequest) *HTTPResponse {
	result := &HTTPResponse{
		Id: r.Id,
	}

	if 0 < r.TimeoutMS {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	for k, vs := range r.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		h.logger().Debug("http request failed", "url", r.URL, "error", err)
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.Headers = resp.Header
	result.Status = resp.Status
	result.StatusCode = resp.StatusCode

	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Body = string(bs)

	return result
}

// Driver returns the Driver.  Requests are made concurrently, so
// responses can arrive out of order.
func (h *HTTP) Driver() Driver {
	return func(ctx context.Context, requests stream.Stream) stream.Stream {
		out := stream.NewSubject()
		sub := requests.Subscribe(stream.Funcs{
			OnNext: func(x interface{}) {
				var req HTTPRequest
				if err := mapstructure.Decode(x, &req); err != nil {
					out.Next((&HTTPResponse{Error: "bad request: " + err.Error()}).Map())
					return
				}
				go func() {
					out.Next(h.Do(ctx, &req).Map())
				}()
			},
		})
		go func() {
			<-ctx.Done()
			sub.Unsubscribe()
		}()
		return out
	}
}
