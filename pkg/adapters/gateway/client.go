// Package gateway is an HTTP client for a remote catalog gateway.
// It implements ports.Configurator so the wizard can run against either the
// in-process resolution engine or a gateway deployed next to the catalog backend.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/configurator/internal/dto"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/ports"
	"go.uber.org/zap"
)

// Default timeouts of a gateway call.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultTimeout        = 60 * time.Second
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 8 << 20

// Client talks to the gateway JSON contract.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

var _ ports.Configurator = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithTimeouts sets the connect and overall timeouts of the default HTTP client.
func WithTimeouts(connect, overall time.Duration) Option {
	return func(cl *Client) {
		cl.http = newHTTPClient(connect, overall)
		cl.timeout = overall
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New creates a Client for the gateway at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(DefaultConnectTimeout, DefaultTimeout),
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient(connect, overall time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}
	return &http.Client{
		Timeout: overall,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: connect,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Search implements ports.Configurator.
func (c *Client) Search(ctx context.Context, query, createdBy string) (domain.SearchResult, error) {
	var resp dto.StartResponse
	if err := c.post(ctx, "/config/start", dto.StartRequest{Query: query, CreatedBy: createdBy}, &resp, &resp.Envelope); err != nil {
		return domain.SearchResult{}, err
	}
	if resp.Matches == nil {
		resp.Matches = []domain.TemplateSummary{}
	}
	return domain.SearchResult{Matches: resp.Matches, Message: resp.Message}, nil
}

// Init implements ports.Configurator.
func (c *Client) Init(ctx context.Context, templateID int64) (domain.TemplateCatalog, error) {
	var resp dto.InitResponse
	if err := c.post(ctx, "/config/init", dto.InitRequest{TemplateID: templateID}, &resp, &resp.Envelope); err != nil {
		return domain.TemplateCatalog{}, err
	}
	if resp.Attributes == nil {
		resp.Attributes = []domain.Attribute{}
	}
	return domain.TemplateCatalog{Template: resp.Template, Attributes: resp.Attributes}, nil
}

// Prepare implements ports.Configurator.
func (c *Client) Prepare(ctx context.Context, templateID int64, selections []domain.Selection) (domain.PrepareResult, error) {
	req := dto.SelectionRequest{TemplateID: templateID, Selections: selections}
	var resp dto.PrepareResponse
	if err := c.post(ctx, "/config/prepare", req, &resp, &resp.Envelope); err != nil {
		return domain.PrepareResult{}, err
	}
	return domain.PrepareResult{
		Template:        resp.Template,
		Selections:      resp.Selections,
		CanonicalIDs:    resp.CanonicalIDs,
		ExistingVariant: resp.ExistingVariant,
		Message:         resp.Message,
	}, nil
}

// Create implements ports.Configurator.
func (c *Client) Create(ctx context.Context, templateID int64, selections []domain.Selection, defaultCode, barcode string) (domain.CreateResult, error) {
	req := dto.SelectionRequest{TemplateID: templateID, Selections: selections, DefaultCode: defaultCode, Barcode: barcode}
	var resp dto.CreateResponse
	if err := c.post(ctx, "/config/create", req, &resp, &resp.Envelope); err != nil {
		return domain.CreateResult{}, err
	}
	return domain.CreateResult{Created: resp.Created, Variant: resp.Variant, Message: resp.Message}, nil
}

// ListVariants implements ports.Configurator.
func (c *Client) ListVariants(ctx context.Context, templateID int64, activeOnly bool) (domain.VariantList, error) {
	req := dto.VariantsRequest{TemplateID: templateID, ActiveOnly: &activeOnly}
	var resp dto.VariantsResponse
	if err := c.post(ctx, "/variants/of_template", req, &resp, &resp.Envelope); err != nil {
		return domain.VariantList{}, err
	}
	if resp.Variants == nil {
		resp.Variants = []domain.VariantRow{}
	}
	return domain.VariantList{Template: resp.Template, Count: resp.Count, Variants: resp.Variants}, nil
}

// Ping calls GET /health.
func (c *Client) Ping(ctx context.Context) error {
	var resp dto.HealthResponse
	return c.do(ctx, http.MethodGet, "/health", nil, &resp, &resp.Envelope)
}

func (c *Client) post(ctx context.Context, path string, body, out any, env *dto.Envelope) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, out, env)
}

// do performs one round trip and decodes the body into out.
// env must point into out so that ok=false can be detected.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any, env *dto.Envelope) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return c.transportError(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return httpError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &domain.GatewayError{Kind: domain.ErrGateway, Message: "Gateway error: malformed response: " + err.Error()}
	}
	if !env.OK {
		msg := env.Message
		if msg == "" {
			msg = "gateway reported failure"
		}
		return &domain.GatewayError{Kind: domain.ErrGateway, Message: msg}
	}
	c.logger.Debug("gateway call", zap.String("path", path), zap.Int("status", resp.StatusCode))
	return nil
}

func (c *Client) transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.GatewayError{
			Kind:    domain.ErrGatewayTimeout,
			Cause:   err,
			Message: fmt.Sprintf("Gateway timeout (no response in %gs).", c.timeout.Seconds()),
		}
	}
	return &domain.GatewayError{
		Kind:    domain.ErrGatewayConnection,
		Cause:   err,
		Message: "Gateway connection error: " + err.Error(),
	}
}

// httpError maps an error body to a GatewayError. Known codes also carry the
// matching domain sentinel so callers can tell stale data from outages.
func httpError(status int, data []byte) error {
	var body dto.ErrorBody
	detail := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		detail = body.Detail
	}
	if detail == "" {
		detail = http.StatusText(status)
	}

	gerr := &domain.GatewayError{Kind: domain.ErrGatewayHTTP, Status: status, Message: detail}
	switch body.Code {
	case dto.CodeValidation:
		gerr.Cause = domain.ErrValidation
	case dto.CodeTemplateNotFound:
		gerr.Cause = domain.ErrTemplateNotFound
	case dto.CodeNotFound:
		gerr.Cause = domain.ErrNotFound
	case dto.CodeSelectionNotOnTemplate:
		gerr.Cause = domain.ErrSelectionNotOnTemplate
	default:
		gerr.Cause = causeFromDetail(status, detail)
	}
	return gerr
}

// causeFromDetail classifies error bodies that carry only a detail string.
func causeFromDetail(status int, detail string) error {
	lower := strings.ToLower(detail)
	switch {
	case status == http.StatusBadRequest && strings.HasPrefix(lower, "selected values not on template"):
		return domain.ErrSelectionNotOnTemplate
	case status == http.StatusNotFound && strings.HasPrefix(lower, "product.template ") && strings.HasSuffix(lower, " not found"):
		return domain.ErrTemplateNotFound
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	}
	return nil
}
