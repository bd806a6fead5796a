package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
)

const (
	ActionCheckInstructions = "check_instructions"
	ActionGenerateQuestions = "generate_questions"
	ActionAnalyzeSubmission = "analyze_submission"

	DefaultCacheTTL = 24 * time.Hour
)

// File is an attachment sent along with a request.
type File struct {
	Name     string
	MimeType string
	Content  []byte
}

// Response is a decoded successful envelope.
type Response struct {
	Action    string
	Data      json.RawMessage
	FromCache bool
}

type InstructionCheck struct {
	IsClear     bool     `json:"is_clear"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
	FromCache   bool     `json:"from_cache"`
}

type QuestionSet struct {
	Questions []models.Question `json:"questions"`
	FromCache bool              `json:"from_cache"`
}

type Options struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Client calls the gateway once per cache miss. It never retries.
type Client struct {
	transport    Transport
	cache        cache.ResponseCache
	cacheTTL     time.Duration
	cacheEnabled atomic.Bool
	logger       *slog.Logger
	tracer       trace.Tracer
}

func NewClient(transport Transport, responseCache cache.ResponseCache, opts Options, logger *slog.Logger) (*Client, error) {
	if transport == nil {
		return nil, newError(ErrKindConfig, "gateway transport is not configured", nil)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	c := &Client{
		transport: transport,
		cache:     responseCache,
		cacheTTL:  opts.CacheTTL,
		logger:    logger,
		tracer:    otel.Tracer("quiz-service/gateway"),
	}
	c.cacheEnabled.Store(opts.CacheEnabled && responseCache != nil)
	return c, nil
}

// SetCacheEnabled toggles cache reads and writes at runtime.
func (c *Client) SetCacheEnabled(enabled bool) {
	c.cacheEnabled.Store(enabled && c.cache != nil)
}

func (c *Client) CacheEnabled() bool {
	return c.cacheEnabled.Load()
}

// ClearCache removes every stored response.
func (c *Client) ClearCache(ctx context.Context) (int64, error) {
	if c.cache == nil {
		return 0, nil
	}
	n, err := c.cache.Clear(ctx)
	if err != nil {
		return 0, err
	}
	c.logger.Info("Gateway cache cleared", "entries", n)
	return n, nil
}

// PurgeExpired removes entries that lookups can no longer return.
func (c *Client) PurgeExpired(ctx context.Context) (int64, error) {
	if c.cache == nil {
		return 0, nil
	}
	n, err := c.cache.Purge(ctx, c.cacheTTL)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.logger.Info("Expired gateway cache entries purged", "entries", n)
	}
	return n, nil
}

func (c *Client) CheckInstructions(ctx context.Context, instructions string) (*InstructionCheck, error) {
	var check InstructionCheck
	resp, err := c.call(ctx, ActionCheckInstructions, map[string]interface{}{
		"instructions": instructions,
	}, check.decode)
	if err != nil {
		return nil, err
	}
	check.FromCache = resp.FromCache
	return &check, nil
}

// GenerateQuestions creates questions from assignment instructions and attachments.
func (c *Client) GenerateQuestions(ctx context.Context, instructions string, count int, files []File) (*QuestionSet, error) {
	var set QuestionSet
	resp, err := c.call(ctx, ActionGenerateQuestions, map[string]interface{}{
		"instructions": instructions,
		"count":        count,
		"files":        encodeFiles(files),
	}, set.decode)
	if err != nil {
		return nil, err
	}
	set.FromCache = resp.FromCache
	return &set, nil
}

// AnalyzeSubmission creates questions from one student's submitted work.
func (c *Client) AnalyzeSubmission(ctx context.Context, submissionText string, count int, files []File) (*QuestionSet, error) {
	var set QuestionSet
	resp, err := c.call(ctx, ActionAnalyzeSubmission, map[string]interface{}{
		"submission_text": submissionText,
		"count":           count,
		"files":           encodeFiles(files),
	}, set.decode)
	if err != nil {
		return nil, err
	}
	set.FromCache = resp.FromCache
	return &set, nil
}

// call runs one action through the cache and the transport. Only data that
// decode accepts is cached, and a cached entry decode rejects counts as a miss.
func (c *Client) call(ctx context.Context, action string, params map[string]interface{}, decode func(json.RawMessage) error) (*Response, error) {
	payload := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload["action"] = action

	// encoding/json sorts map keys, which makes this the canonical form
	canonical, err := json.Marshal(payload)
	if err != nil {
		return nil, newError(ErrKindMalformed, "failed to encode request", err)
	}
	hash := RequestHash(canonical)

	ctx, span := c.tracer.Start(ctx, "gateway."+action)
	defer span.End()
	span.SetAttributes(attribute.String("gateway.action", action))

	useCache := c.CacheEnabled()
	if useCache {
		if resp := c.lookup(ctx, action, hash, decode); resp != nil {
			span.SetAttributes(attribute.Bool("gateway.cache_hit", true))
			metrics.GatewayRequests.WithLabelValues(action, "cache_hit").Inc()
			return resp, nil
		}
	}

	start := time.Now()
	raw, err := c.transport.Do(ctx, payload)
	metrics.GatewayDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())

	var data json.RawMessage
	if err == nil {
		data, err = decodeEnvelope(raw)
	}
	if err == nil {
		err = decode(data)
	}
	if err != nil {
		gwErr := asGatewayError(err)
		metrics.GatewayRequests.WithLabelValues(action, string(gwErr.Kind)).Inc()
		span.RecordError(gwErr)
		span.SetStatus(codes.Error, gwErr.Error())
		c.logger.Warn("Gateway request failed", "action", action, "kind", gwErr.Kind, "status", gwErr.Status, "error", gwErr.Message)
		return nil, gwErr
	}
	metrics.GatewayRequests.WithLabelValues(action, "ok").Inc()

	if useCache {
		c.store(ctx, action, hash, raw, data)
	}

	return &Response{Action: action, Data: data, FromCache: false}, nil
}

func (c *Client) lookup(ctx context.Context, action, hash string, decode func(json.RawMessage) error) *Response {
	entry, err := c.cache.Lookup(ctx, action, hash, c.cacheTTL)
	if err != nil {
		// a broken cache degrades to a live call
		c.logger.Warn("Gateway cache lookup failed", "action", action, "error", err)
		return nil
	}
	if entry == nil || len(entry.ParsedResponse) == 0 {
		return nil
	}
	if err := decode(json.RawMessage(entry.ParsedResponse)); err != nil {
		c.logger.Warn("Ignoring unusable cached gateway response", "action", action, "error", err)
		return nil
	}
	return &Response{
		Action:    action,
		Data:      append(json.RawMessage(nil), entry.ParsedResponse...),
		FromCache: true,
	}
}

func (c *Client) store(ctx context.Context, action, hash string, raw []byte, data json.RawMessage) {
	entry := &models.CacheEntry{
		RequestType:    action,
		RequestHash:    hash,
		RawResponse:    string(raw),
		ParsedResponse: datatypes.JSON(append([]byte(nil), data...)),
		CreatedAt:      time.Now(),
	}
	if err := c.cache.Store(ctx, entry); err != nil {
		c.logger.Warn("Gateway cache write failed", "action", action, "error", err)
	}
}

// RequestHash is the hex sha256 of a canonical payload.
func RequestHash(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func decodeEnvelope(raw []byte) (json.RawMessage, error) {
	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, newError(ErrKindMalformed, "response is not valid JSON", err)
	}
	if env.Success == nil {
		return nil, newError(ErrKindMissingField, "response has no success field", nil)
	}
	if !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = "gateway reported a failure without a message"
		}
		return nil, &Error{Kind: ErrKindUpstream, Message: msg}
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return nil, newError(ErrKindMissingField, "response has no data field", nil)
	}
	return env.Data, nil
}

func (c *InstructionCheck) decode(data json.RawMessage) error {
	*c = InstructionCheck{}
	if err := json.Unmarshal(data, c); err != nil {
		return newError(ErrKindMalformed, "invalid instruction check result", err)
	}
	return nil
}

func (s *QuestionSet) decode(data json.RawMessage) error {
	var result struct {
		Questions *[]json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return newError(ErrKindMalformed, "invalid questions result", err)
	}
	if result.Questions == nil {
		return newError(ErrKindMissingField, "response has no questions field", nil)
	}

	questions, err := NormalizeQuestions(*result.Questions)
	if err != nil {
		return err
	}
	s.Questions = questions
	return nil
}

func encodeFiles(files []File) []map[string]interface{} {
	encoded := make([]map[string]interface{}, 0, len(files))
	for _, f := range files {
		encoded = append(encoded, map[string]interface{}{
			"filename": f.Name,
			"mimetype": f.MimeType,
			"content":  base64.StdEncoding.EncodeToString(f.Content),
		})
	}
	return encoded
}

func asGatewayError(err error) *Error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return newError(ErrKindConnection, connectionMessage(err), err)
}
