// Package extract asks an LLM to pull tank-inspection fields out of a
// flattened workbook. The reply is parsed into a raw field bag; all
// validation and defaulting happens downstream in the reconciler.
package extract

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/oilpro/tanks-cli/internal/model"
	"github.com/oilpro/tanks-cli/internal/reconcile"
	"github.com/oilpro/tanks-cli/internal/workbook"
	"github.com/oilpro/tanks-cli/pkg/anthropic"
)

// Config controls the extraction call.
type Config struct {
	Model             string
	MaxTokens         int64
	Temperature       float64
	RequestsPerMinute int // 0 disables client-side rate limiting
}

// Extractor drives the AI extraction path.
type Extractor struct {
	client  anthropic.Client
	reg     *reconcile.Registry
	cfg     Config
	limiter *rate.Limiter
}

// New builds an Extractor. The registry supplies the synonym vocabulary the
// prompt enumerates, so prompt and reconciler always agree on field names.
func New(client anthropic.Client, reg *reconcile.Registry, cfg Config) *Extractor {
	e := &Extractor{client: client, reg: reg, cfg: cfg}
	if cfg.RequestsPerMinute > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return e
}

// ExtractFile flattens a workbook and extracts a raw field bag from it.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (model.RawFieldBag, error) {
	text, err := workbook.Flatten(path)
	if err != nil {
		return nil, err
	}
	return e.ExtractText(ctx, text, filepath.Base(path))
}

// ExtractText runs the extraction prompt over an already-flattened workbook
// text. name is used only for logging.
func (e *Extractor) ExtractText(ctx context.Context, workbookText, name string) (model.RawFieldBag, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: rate limit wait")
		}
	}

	temp := e.cfg.Temperature
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		System:      systemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(e.reg, workbookText)},
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "extract: %s", name)
	}
	resp.Usage.Log(e.cfg.Model, name)

	cleaned := cleanJSON(contentText(resp))
	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		zap.L().Warn("extract: response is not valid json",
			zap.String("workbook", name),
			zap.Error(err),
		)
		return nil, eris.Wrapf(err, "extract: parse response for %s", name)
	}

	return flattenPayload(payload), nil
}

// flattenPayload lifts the leaves of the (possibly grouped) response object
// into a flat bag. JSON nulls mean "not found" and are dropped so the
// reconciler treats those fields as absent. Arrays (thickness grids, nozzle
// tables) are not part of the core record and are skipped.
func flattenPayload(m map[string]any) model.RawFieldBag {
	bag := model.RawFieldBag{}
	var walk func(m map[string]any)
	walk = func(m map[string]any) {
		for k, v := range m {
			switch child := v.(type) {
			case map[string]any:
				walk(child)
			case []any:
			case nil:
			default:
				if _, exists := bag[k]; !exists {
					bag[k] = v
				}
			}
		}
	}
	walk(m)
	return bag
}

func contentText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
