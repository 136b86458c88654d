package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultExtractTimeout bounds one extraction request.
const DefaultExtractTimeout = 45 * time.Second

const structuredPrompt = "请从发票中提取以下字段，并且只输出一个JSON对象，不要输出任何其他文字或markdown。" +
	"字段和定位要求：" +
	"invoice_date(开票日期，发票右上角，格式YYYY-MM-DD或null), " +
	"item_name(项目名称，中间表格“项目名称”列，若有多行取第一条有效项目名，字符串或null), " +
	"amount(价税合计小写金额，即“(小写)”右侧金额，纯数字字符串如26.80或null)。"

var datePattern = regexp.MustCompile(`(20\d{2})[^\d]?(\d{1,2})[^\d]?(\d{1,2})`)

// CloudExtractor reads invoice fields through an OpenAI-compatible vision
// chat completions endpoint.
type CloudExtractor struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTP *http.Client
	Log  zerolog.Logger
}

var _ Extractor = (*CloudExtractor)(nil)

// NewCloudExtractorFactory returns a factory building cloud extractors with
// the given logger.
func NewCloudExtractorFactory(log zerolog.Logger) ExtractorFactory {
	client := &http.Client{Timeout: DefaultExtractTimeout}
	return func(baseURL, model, apiKey string) Extractor {
		return &CloudExtractor{
			BaseURL: strings.TrimRight(baseURL, "/"),
			APIKey:  apiKey,
			Model:   model,
			HTTP:    client,
			Log:     log,
		}
	}
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends the file to the model and normalizes the answer. A reply with
// no parseable object yields an empty extraction.
func (c *CloudExtractor) Extract(ctx context.Context, path string) (*Extraction, error) {
	dataURL, err := dataURL(path)
	if err != nil {
		return nil, err
	}

	payload := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL, Detail: "high"}},
				{Type: "text", Text: structuredPrompt},
			},
		}},
		Temperature:    0,
		MaxTokens:      300,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.Log.Debug().
		Str("model", c.Model).
		Str("file", filepath.Base(path)).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("extraction request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extraction returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	if len(out.Choices) == 0 {
		return &Extraction{}, nil
	}

	fields := parseObject(messageText(out.Choices[0].Message.Content))
	if fields == nil {
		return &Extraction{}, nil
	}
	return &Extraction{
		InvoiceDate: NormalizeDate(fields["invoice_date"]),
		ItemName:    NormalizeItemName(fields["item_name"]),
		Amount:      NormalizeAmount(fields["amount"]),
		Confidence:  confidence(fields["confidence"]),
	}, nil
}

// dataURL encodes a file as a data URL. PDFs are sent as-is.
func dataURL(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType := mime.TypeByExtension(ext)
	switch ext {
	case ".pdf":
		mimeType = "application/pdf"
	case ".jpg", ".jpeg":
		mimeType = "image/jpeg"
	case ".png":
		mimeType = "image/png"
	}
	if mimeType == "" {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// messageText flattens a message content that is either a string or a list
// of text parts.
func messageText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Text != nil {
				texts = append(texts, *p.Text)
			}
		}
		return strings.Join(texts, "\n")
	}
	return ""
}

// parseObject decodes a JSON object from model output, tolerating prose or
// code fences around it.
func parseObject(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil
	}
	return obj
}

// stringOf renders a decoded JSON scalar as text. Null yields "".
func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// NormalizeDate extracts a calendar date as YYYY-MM-DD. Invalid dates yield nil.
func NormalizeDate(v any) *string {
	m := datePattern.FindStringSubmatch(stringOf(v))
	if m == nil {
		return nil
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

// NormalizeAmount strips currency marks and separators and formats the value
// with two decimals.
func NormalizeAmount(v any) *string {
	text := stringOf(v)
	text = strings.NewReplacer("￥", "", "¥", "", ",", "").Replace(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	s := strconv.FormatFloat(f, 'f', 2, 64)
	return &s
}

// NormalizeItemName keeps the first line of the item name.
func NormalizeItemName(v any) *string {
	text := stringOf(v)
	if text == "" {
		return nil
	}
	first := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	if first == "" {
		return nil
	}
	return &first
}

// confidence reads the model's confidence, defaulting to 0.9 and clamped to [0, 1].
func confidence(v any) float64 {
	c := 0.9
	switch t := v.(type) {
	case float64:
		c = t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			c = f
		}
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
