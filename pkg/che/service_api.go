package che

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

const defaultRequestTimeout = 30 * time.Second

// RequestEditorFn is called on every outgoing request before it is sent.
type RequestEditorFn func(ctx context.Context, req *http.Request) error

// ServiceApi is a small JSON-over-HTTP client bound to the platform API base
// URL and a bearer token.
type ServiceApi struct {
	baseURL    string
	token      string
	httpClient *http.Client
	editors    []RequestEditorFn
}

type ServiceApiOption func(*ServiceApi)

func WithHTTPClient(c *http.Client) ServiceApiOption {
	return func(s *ServiceApi) {
		s.httpClient = c
	}
}

func WithRequestEditorFn(fn RequestEditorFn) ServiceApiOption {
	return func(s *ServiceApi) {
		s.editors = append(s.editors, fn)
	}
}

func NewServiceApi(baseURL string, opts ...ServiceApiOption) *ServiceApi {
	s := &ServiceApi{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceApiWithToken creates a ServiceApi that authenticates with token.
func NewServiceApiWithToken(baseURL, token string, opts ...ServiceApiOption) *ServiceApi {
	s := NewServiceApi(baseURL, opts...)
	s.token = token
	return s
}

// WithToken returns a copy of the api that sends token instead.
func (s *ServiceApi) WithToken(token string) *ServiceApi {
	c := *s
	c.token = token
	c.editors = append([]RequestEditorFn(nil), s.editors...)
	return &c
}

func (s *ServiceApi) BaseURL() string {
	return s.baseURL
}

// Response is a fully read HTTP response.
type Response struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns a RemoteApiError describing a non-2xx response.
func (r *Response) Err() error {
	return srvErrors.NewRemoteApiError(r.Method, r.URL, r.StatusCode, strings.TrimSpace(string(r.Body)))
}

// Decode unmarshals the body into out.
func (r *Response) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return srvErrors.NewMalformedResponseError(r.Method, r.URL, r.StatusCode, err)
	}
	return nil
}

// Do sends a request with an optional JSON body. Transport failures are
// returned as RemoteApiError; the status code is left to the caller.
func (s *ServiceApi) Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.token))
	}
	for _, fn := range s.editors {
		if err := fn(ctx, req); err != nil {
			return nil, err
		}
	}

	zap.S().Named("service_api").Debugw("sending request", "method", method, "url", u)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, srvErrors.NewRemoteApiErrorWithCause(method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, srvErrors.NewMalformedResponseError(method, u, resp.StatusCode, err)
	}

	return &Response{Method: method, URL: u, StatusCode: resp.StatusCode, Body: data}, nil
}

// pathParam encodes a path parameter the way generated clients do.
func pathParam(name string, value string) (string, error) {
	return runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
}

// addQueryParam encodes a form query parameter into values.
func addQueryParam(values url.Values, name string, value string) error {
	frag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return err
	}
	parsed, err := url.ParseQuery(frag)
	if err != nil {
		return err
	}
	for k, vs := range parsed {
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	return nil
}
