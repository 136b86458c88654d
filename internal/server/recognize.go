package server

import (
	"context"
	"os"
	"time"

	"github.com/hpungsan/invoicename/internal/invoice"
)

// Failure reasons recorded on items by recognition.
const (
	ReasonAPIKeyNotConfigured = "api_key_not_configured"
	ReasonFileNotFound        = "file_not_found"
	ReasonCloudRequestFailed  = "cloud_request_failed"
	ReasonMissingFields       = "missing_required_fields"
	ReasonLowConfidence       = "low_confidence"
)

// ReviewThreshold is the confidence below which a complete extraction still
// needs review.
const ReviewThreshold = 0.65

// Extraction is the normalized field set read from one invoice.
type Extraction struct {
	InvoiceDate *string
	ItemName    *string
	Amount      *string
	Confidence  float64
}

// Extractor reads invoice fields from a file.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Extraction, error)
}

// ExtractorFactory builds an extractor for an endpoint, model and credential.
type ExtractorFactory func(baseURL, model, apiKey string) Extractor

// recognizeItem runs extraction for one item and sets its fields and status.
func recognizeItem(ctx context.Context, ex Extractor, apiKey string, item *invoice.Item, mapping map[string][]string, now time.Time) {
	item.UpdatedAt = now
	fail := func(reason string) {
		item.Status = invoice.StatusFailed
		item.FailureReason = invoice.Str(reason)
	}

	if apiKey == "" {
		fail(ReasonAPIKeyNotConfigured)
		return
	}
	if _, err := os.Stat(item.SourcePath); err != nil {
		fail(ReasonFileNotFound)
		return
	}

	ext, err := ex.Extract(ctx, item.SourcePath)
	if err != nil {
		fail(ReasonCloudRequestFailed)
		return
	}

	item.InvoiceDate = ext.InvoiceDate
	item.ItemName = ext.ItemName
	item.Amount = ext.Amount
	item.Category = invoice.Str(InferCategory(item.ItemName, item.OldName, mapping))
	item.VendorName = nil
	item.ExtractedText = nil

	if item.InvoiceDate == nil || item.ItemName == nil || item.Amount == nil {
		fail(ReasonMissingFields)
		return
	}
	if ext.Confidence < ReviewThreshold {
		item.Status = invoice.StatusNeedsReview
		item.FailureReason = invoice.Str(ReasonLowConfidence)
		return
	}
	item.Status = invoice.StatusOK
	item.FailureReason = nil
}
