// Package remote is the HTTP client for the document extraction, job
// description scoring and résumé generation service.
package remote

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/RohitMukkala/coding-journey/pkg/gate"
	"github.com/RohitMukkala/coding-journey/pkg/httpcache"
	"github.com/RohitMukkala/coding-journey/pkg/match"
	"github.com/RohitMukkala/coding-journey/pkg/resume"
)

// DefaultBaseURL is where the service listens when run locally.
const DefaultBaseURL = "http://localhost:8000"

// ErrMalformedExtraction is returned when the service answers with a
// payload that does not have the documented shape.
var ErrMalformedExtraction = errors.New("malformed extraction payload")

//go:embed schemas/*.json
var schemaFS embed.FS

// SchemaError lists the violations found in a response payload.
type SchemaError struct {
	Schema string
	Errors []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Schema, strings.Join(e.Errors, "; "))
}

// Client talks to the extraction, scoring and generation endpoints.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	schemas    map[string]*gojsonschema.Schema
	baseURL    string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	baseURL    string
}

// WithBaseURL sets the service root.
func WithBaseURL(base string) Option {
	return func(c *config) { c.baseURL = strings.TrimSuffix(base, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}

// WithHTTPCache caches score responses. Uploads and generation are never cached.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New creates a Client and compiles the response schemas.
func New(opts ...Option) (*Client, error) {
	cfg := &config{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient: cfg.httpClient,
		cache:      cfg.cache,
		logger:     cfg.logger,
		schemas:    schemas,
		baseURL:    cfg.baseURL,
	}, nil
}

func loadSchemas() (map[string]*gojsonschema.Schema, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	out := make(map[string]*gojsonschema.Schema, len(entries))
	for _, e := range entries {
		data, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", e.Name(), err)
		}
		out[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] = s
	}
	return out, nil
}

func (c *Client) validate(name string, body []byte) error {
	res, err := c.schemas[name].Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &SchemaError{Schema: name, Errors: []string{err.Error()}}
	}
	if res.Valid() {
		return nil
	}
	se := &SchemaError{Schema: name}
	for _, e := range res.Errors() {
		se.Errors = append(se.Errors, e.String())
	}
	return se
}

// ExtractResume uploads a PDF or DOCX résumé and returns the extracted sections.
func (c *Client) ExtractResume(ctx context.Context, filename string, content []byte) (gate.Extraction, error) {
	return c.extractRecord(ctx, "/upload/resume/", filename, content)
}

// ExtractLinkedIn uploads an exported LinkedIn profile PDF.
func (c *Client) ExtractLinkedIn(ctx context.Context, filename string, content []byte) (gate.Extraction, error) {
	return c.extractRecord(ctx, "/upload/linkedin/", filename, content)
}

// extractRecord posts a document and decodes {"data": {...}}. The service
// answers 400 when it found nothing, which is reported as an empty
// extraction rather than an error.
func (c *Client) extractRecord(ctx context.Context, path, filename string, content []byte) (gate.Extraction, error) {
	body, err := c.upload(ctx, path, filename, content)
	if isStatus(err, http.StatusBadRequest) {
		c.logger.InfoContext(ctx, "extractor found no content", "path", path, "file", filename)
		return gate.Extraction{Empty: true}, nil
	}
	if err != nil {
		return gate.Extraction{}, err
	}

	if err := c.validate("extraction", body); err != nil {
		return gate.Extraction{}, fmt.Errorf("%w: %w", ErrMalformedExtraction, err)
	}
	var payload struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return gate.Extraction{}, fmt.Errorf("%w: %w", ErrMalformedExtraction, err)
	}
	rec, err := resume.FromMap(payload.Data)
	if err != nil {
		return gate.Extraction{}, fmt.Errorf("%w: %w", ErrMalformedExtraction, err)
	}

	c.logger.DebugContext(ctx, "extracted record", "path", path, "file", filename, "fields", len(rec.Lists()))
	return gate.Extraction{Record: rec}, nil
}

// ExtractJobDescription uploads a job description PDF and returns its text.
func (c *Client) ExtractJobDescription(ctx context.Context, filename string, content []byte) (string, error) {
	body, err := c.upload(ctx, "/upload/jd", filename, content)
	if err != nil {
		return "", err
	}
	if err := c.validate("text", body); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedExtraction, err)
	}
	var payload struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedExtraction, err)
	}
	return payload.Data, nil
}

func (c *Client) upload(ctx context.Context, path, filename string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("User-Agent", httpcache.UserAgent)

	return httpcache.FetchURL(ctx, nil, c.httpClient, req, c.logger)
}

type scoreRequest struct {
	Resume map[string][]string `json:"resume"`
	JD     string              `json:"jd"`
}

type scoreResponse struct {
	MissingKeywords []string `json:"missing_keywords"`
	Recommendations []string `json:"enhanced_recommendations"`
	MatchScore      float64  `json:"match_score"`
}

// Score asks the service to match r against a job description. It
// satisfies match.Scorer.
func (c *Client) Score(ctx context.Context, r resume.Record, jobDescription string) (match.Result, error) {
	payload, err := json.Marshal(scoreRequest{Resume: r.Lists(), JD: jobDescription})
	if err != nil {
		return match.Result{}, fmt.Errorf("encode match request: %w", err)
	}
	body, err := c.postJSON(ctx, "/match_jd/", payload, c.cache)
	if err != nil {
		return match.Result{}, err
	}
	if err := c.validate("score", body); err != nil {
		return match.Result{}, fmt.Errorf("decode match response: %w", err)
	}

	var resp scoreResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return match.Result{}, fmt.Errorf("decode match response: %w", err)
	}
	return match.Result{
		Score:           clampScore(resp.MatchScore),
		MissingKeywords: resp.MissingKeywords,
		Recommendations: resp.Recommendations,
	}, nil
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(max(0, min(100, v))))
}

type jdMatch struct {
	MissingKeywords []string `json:"missing_keywords"`
	MatchScore      int      `json:"match_score"`
}

type generateRequest struct {
	JDMatch *jdMatch      `json:"jd_match,omitempty"`
	Resume  resume.Record `json:"resume"`
}

// Generate renders r into a downloadable document. result may be nil.
func (c *Client) Generate(ctx context.Context, r resume.Record, result *match.Result) ([]byte, error) {
	req := generateRequest{Resume: r}
	if result != nil {
		req.JDMatch = &jdMatch{MatchScore: result.Score, MissingKeywords: result.MissingKeywords}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}
	doc, err := c.postJSON(ctx, "/generate_resume/", payload, nil)
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "generated document", "bytes", len(doc))
	return doc, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload []byte, cache httpcache.Cacher) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", httpcache.UserAgent)
	return httpcache.FetchURL(ctx, cache, c.httpClient, req, c.logger)
}

func isStatus(err error, code int) bool {
	var httpErr *httpcache.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == code
}
