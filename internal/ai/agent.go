package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"order-desk/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
	"github.com/shopspring/decimal"
)

// OrderDrafter turns a free-text customer message into a draft order. Drafts are
// suggestions for staff; nothing is placed automatically.
type OrderDrafter interface {
	DraftOrder(ctx context.Context, message string, variants []core.Variant, currency string) (*OrderDraft, error)
}

// OrderDraft is the structured output requested from the model.
type OrderDraft struct {
	CustomerName  string      `json:"customer_name" jsonschema:"description=Customer name as written in the message or empty"`
	CustomerPhone string      `json:"customer_phone" jsonschema:"description=Phone number as written in the message or empty"`
	Lines         []DraftLine `json:"lines" jsonschema:"description=One entry per requested catalog variant"`
	Notes         string      `json:"notes" jsonschema:"description=Delivery or packing instructions from the message"`
	Confidence    float64     `json:"confidence" jsonschema:"description=Confidence between 0 and 1"`
	Reasoning     string      `json:"reasoning"`
}

type DraftLine struct {
	VariantID int    `json:"variant_id" jsonschema:"description=ID from the catalog listing"`
	Quantity  string `json:"quantity" jsonschema:"description=Decimal quantity as a string such as 2 or 0.5"`
	Matched   string `json:"matched_text" jsonschema:"description=The words in the message this line was taken from"`
}

type Agent struct {
	client *openai.Client
	model  string
}

func NewAgent(apiKey, model string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Agent{client: &client, model: model}
}

func (a *Agent) DraftOrder(ctx context.Context, message string, variants []core.Variant, currency string) (*OrderDraft, error) {
	if strings.TrimSpace(message) == "" {
		return nil, core.Invalid("message", "message is required")
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("no orderable variants in the catalog")
	}

	prompt := fmt.Sprintf(`You take orders for a small online shop.
Read the customer's message and map every item they ask for to a variant in the catalog below.
Rules:
1. Use ONLY variant ids from the catalog.
2. Quantities are decimal strings (e.g. "2", "0.5").
3. Skip anything you cannot match and say so in the reasoning.
4. Provide a confidence score (0.0-1.0).

Catalog (prices in %s):
%s

Customer message: %s`, currency, FormatCatalog(variants, currency), message)

	schemaMap, err := draftSchema()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(a.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "order_draft",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A draft order extracted from a customer message"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var draft OrderDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	if err := ValidateDraft(&draft, variants); err != nil {
		return nil, fmt.Errorf("draft validation failed: %w", err)
	}
	return &draft, nil
}

// FormatCatalog renders one line per variant for the prompt.
func FormatCatalog(variants []core.Variant, currency string) string {
	var b strings.Builder
	for _, v := range variants {
		price := "n/a"
		if amount, ok := v.PriceFor(currency); ok {
			price = fmt.Sprintf("%d", amount)
		}
		fmt.Fprintf(&b, "- id=%d | %s | %s | unit=%s | price=%s | in stock=%s\n",
			v.ID, v.ProductName, v.OptionSignature, v.Unit, price, v.StockOnHand)
	}
	return b.String()
}

// ValidateDraft requires every line to reference a listed variant with a positive quantity.
func ValidateDraft(d *OrderDraft, variants []core.Variant) error {
	known := make(map[int]bool, len(variants))
	for _, v := range variants {
		known[v.ID] = true
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %.2f out of range", d.Confidence)
	}
	for i, l := range d.Lines {
		if !known[l.VariantID] {
			return fmt.Errorf("line %d: variant %d is not in the catalog", i, l.VariantID)
		}
		q, err := decimal.NewFromString(strings.TrimSpace(l.Quantity))
		if err != nil {
			return fmt.Errorf("line %d: invalid quantity %q", i, l.Quantity)
		}
		if !q.IsPositive() {
			return fmt.Errorf("line %d: quantity must be positive, got %s", i, q)
		}
	}
	return nil
}

func draftSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(&OrderDraft{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
