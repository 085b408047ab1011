package order

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
	"voiceorder-service/internal/blob"
	"voiceorder-service/internal/catalog"
	"voiceorder-service/internal/gemini"
	"voiceorder-service/internal/model"
	"voiceorder-service/internal/prompt"
	"voiceorder-service/pkg/logger"
	"voiceorder-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Processor runs the order pipeline: load order, resolve the active prompt,
// fetch catalog and audio, call the model, validate prices and persist the
// terminal state. Each order is mutated exactly once, to completed or
// failed; failures are terminal with no retry.
type Processor struct {
	db            *gorm.DB
	prompts       *prompt.Store
	catalog       *catalog.Client
	llm           *gemini.Client
	blobs         blob.Store
	httpClient    *http.Client
	defaultPrompt string
	timeout       time.Duration
}

// NewProcessor creates an order pipeline processor
func NewProcessor(db *gorm.DB, prompts *prompt.Store, catalogClient *catalog.Client, llm *gemini.Client, blobs blob.Store, timeout time.Duration) *Processor {
	return &Processor{
		db:            db,
		prompts:       prompts,
		catalog:       catalogClient,
		llm:           llm,
		blobs:         blobs,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		defaultPrompt: prompt.DefaultSystemPrompt,
		timeout:       timeout,
	}
}

// Process runs the pipeline for one order. On any failure after the order
// is loaded, the order is marked failed with the upstream message so it is
// never left stuck in processing.
func (p *Processor) Process(ctx context.Context, orderID uint) {
	log := logger.GetLogger().With(zap.Uint("order_id", orderID))
	start := time.Now()
	defer prometheus.ObservePipelineDuration(start)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var ord model.Order
	if err := p.db.First(&ord, orderID).Error; err != nil {
		// Caller-supplied IDs come from our own create path; a missing
		// order is a programming error and there is no row to fail.
		log.Error("Order not found for processing", zap.Error(err))
		prometheus.RecordOrderProcessed("missing")
		return
	}

	if err := p.execute(ctx, log, &ord); err != nil {
		log.Error("Order pipeline failed", zap.Error(err))
		p.markFailed(log, ord.ID, err)
		prometheus.RecordOrderProcessed("failed")
		return
	}

	log.Info("Order pipeline completed", zap.Duration("elapsed", time.Since(start)))
	prometheus.RecordOrderProcessed("completed")
}

func (p *Processor) execute(ctx context.Context, log *zap.Logger, ord *model.Order) error {
	// Active prompt, falling back to the built-in default so the model is
	// never uninstructed
	systemPrompt := p.defaultPrompt
	var promptVersionID *uint
	active, err := p.prompts.GetActive()
	if err != nil {
		return fmt.Errorf("failed to load active prompt: %w", err)
	}
	if active != nil {
		systemPrompt = active.Prompt
		promptVersionID = &active.ID
	}

	products, err := p.catalog.ListProducts(ctx, ord.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to fetch product catalog: %w", err)
	}

	audioURL, err := p.blobs.URL(ctx, ord.AudioID)
	if err != nil {
		if err == blob.ErrNotFound {
			return fmt.Errorf("audio file not found in storage")
		}
		return fmt.Errorf("failed to resolve audio: %w", err)
	}

	audioBytes, mediaType, err := p.fetchAudio(ctx, audioURL)
	if err != nil {
		return err
	}
	log.Info("Fetched audio clip",
		zap.Int("bytes", len(audioBytes)),
		zap.String("media_type", mediaType))

	catalogBlock := serializeCatalog(products)

	userText := "PRODUCT CATALOG:\n" + catalogBlock + "\n\nListen to this voice note and match products:"
	raw, err := p.llm.ExtractOrder(ctx, systemPrompt, userText,
		mediaType, base64.StdEncoding.EncodeToString(audioBytes))
	if err != nil {
		return err
	}

	var result extractionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return fmt.Errorf("model returned invalid JSON: %v", err)
	}

	items := validateItems(ord.ID, products, result.Items)
	unmatched := make([]model.UnmatchedItem, 0, len(result.Unmatched))
	for _, u := range result.Unmatched {
		unmatched = append(unmatched, model.UnmatchedItem{
			OrderID: ord.ID,
			Heard:   u.Heard,
			Reason:  u.Reason,
		})
	}

	return p.saveResults(ord.ID, promptVersionID, raw, result.Transcript, items, unmatched)
}

// fetchAudio downloads the stored clip and detects its real media type from
// the transfer. Recorders differ per environment; a wrong media type makes
// the model reject or mis-decode the clip.
func (p *Processor) fetchAudio(ctx context.Context, audioURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch audio: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("audio file is empty")
	}

	return data, detectMediaType(resp.Header.Get("Content-Type"), data), nil
}

func detectMediaType(header string, data []byte) string {
	if header != "" {
		if mediaType, _, err := mime.ParseMediaType(header); err == nil &&
			mediaType != "" && mediaType != "application/octet-stream" {
			return mediaType
		}
	}
	return http.DetectContentType(data)
}

// serializeCatalog renders the catalog as one name|size|price line per
// product to keep token cost down
func serializeCatalog(products []catalog.Product) string {
	lines := make([]string, 0, len(products))
	for _, p := range products {
		lines = append(lines, p.Name+"|"+p.Size+"|"+strconv.FormatFloat(p.Price, 'f', -1, 64))
	}
	return strings.Join(lines, "\n")
}

// saveResults applies the terminal write as one transaction so a reader
// sees either the processing state or the fully populated result, never a
// half-written item list
func (p *Processor) saveResults(orderID uint, promptVersionID *uint, raw, transcript string, items []model.OrderItem, unmatched []model.UnmatchedItem) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":              model.OrderStatusCompleted,
			"transcript":          transcript,
			"raw_gemini_response": raw,
		}
		if promptVersionID != nil {
			updates["prompt_version_id"] = *promptVersionID
		}
		if err := tx.Model(&model.Order{}).Where("id = ?", orderID).Updates(updates).Error; err != nil {
			return err
		}

		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		if len(unmatched) > 0 {
			if err := tx.Create(&unmatched).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Processor) markFailed(log *zap.Logger, orderID uint, cause error) {
	err := p.db.Model(&model.Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"status": model.OrderStatusFailed,
		"error":  cause.Error(),
	}).Error
	if err != nil {
		log.Error("Failed to mark order as failed", zap.Error(err))
	}
}
