package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/money"
	"github.com/Veraticus/pnl-categorizer/internal/orgconfig"
)

// CategorizeInput is the input schema for the categorize_transaction tool.
type CategorizeInput struct {
	AutoApplyThreshold *float64 `json:"auto_apply_threshold,omitempty" jsonschema:"override the organization's auto-apply threshold (0-1)"`
	HybridThreshold    *float64 `json:"hybrid_threshold,omitempty" jsonschema:"override the pass 1 confidence below which the language model is consulted (0-1)"`
	UseGuardrails      *bool    `json:"use_guardrails,omitempty" jsonschema:"override whether guardrails run"`
	ID                 string   `json:"id,omitempty" jsonschema:"transaction ID; generated when empty"`
	OrgID              string   `json:"org_id" jsonschema:"organization the transaction belongs to"`
	Date               string   `json:"date" jsonschema:"posting date as YYYY-MM-DD"`
	AmountCents        string   `json:"amount_cents,omitempty" jsonschema:"signed amount in minor units, negative for money out"`
	Amount             string   `json:"amount,omitempty" jsonschema:"signed amount in major units such as -25.50, used when amount_cents is empty"`
	Currency           string   `json:"currency,omitempty" jsonschema:"ISO currency code (default USD)"`
	Description        string   `json:"description" jsonschema:"bank description"`
	MerchantName       string   `json:"merchant_name,omitempty" jsonschema:"merchant name when known"`
	MCC                string   `json:"mcc,omitempty" jsonschema:"merchant category code when known"`
}

// CategorizeOutput is the output schema for the categorize_transaction tool.
type CategorizeOutput struct {
	TransactionID     string   `json:"transaction_id"`
	CategoryID        string   `json:"category_id"`
	CategorySlug      string   `json:"category_slug"`
	CategoryName      string   `json:"category_name"`
	Stage             string   `json:"stage"`
	Rationale         string   `json:"rationale,omitempty"`
	GuardrailsApplied []string `json:"guardrails_applied"`
	Violations        []string `json:"violations"`
	Confidence        float64  `json:"confidence"`
	AutoApply         bool     `json:"auto_apply"`
	NeedsReview       bool     `json:"needs_review"`
}

// ListCategoriesInput is the input schema for the list_categories tool.
type ListCategoriesInput struct {
	Type string `json:"type,omitempty" jsonschema:"only categories of this type: revenue, cogs, opex, liability or clearing"`
}

// CategoryOutput describes one taxonomy node.
type CategoryOutput struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Parent string `json:"parent,omitempty"`
	IsPnL  bool   `json:"is_pnl"`
}

// ListCategoriesOutput is the output schema for the list_categories tool.
type ListCategoriesOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Count      int              `json:"count"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "categorize_transaction",
		Description: "Categorize a bank transaction into the e-commerce P&L taxonomy",
	}, s.handleCategorize)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the categories of the e-commerce P&L taxonomy",
	}, s.handleListCategories)
}

func (s *Server) handleCategorize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CategorizeInput,
) (*mcp.CallToolResult, CategorizeOutput, error) {
	txn, err := transactionFromInput(input)
	if err != nil {
		return nil, CategorizeOutput{}, err
	}

	cfg, err := s.configFor(ctx, input)
	if err != nil {
		return nil, CategorizeOutput{}, err
	}

	result, err := s.deps.Categorizer.Categorize(ctx, txn, cfg)
	if err != nil {
		return nil, CategorizeOutput{}, err
	}

	s.logger.Debug("Categorized transaction via MCP",
		"transaction_id", txn.ID,
		"org_id", txn.OrgID,
		"category", result.CategorySlug)

	name := ""
	if node, ok := s.deps.Taxonomy.ByID(result.CategoryID); ok {
		name = node.Name
	}
	return nil, CategorizeOutput{
		TransactionID:     result.TransactionID,
		CategoryID:        result.CategoryID,
		CategorySlug:      result.CategorySlug,
		CategoryName:      name,
		Stage:             string(result.Stage),
		Rationale:         result.Rationale,
		GuardrailsApplied: nonNil(result.GuardrailsApplied),
		Violations:        nonNil(result.Violations),
		Confidence:        result.Confidence,
		AutoApply:         result.AutoApply,
		NeedsReview:       result.NeedsReview,
	}, nil
}

func (s *Server) handleListCategories(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListCategoriesInput,
) (*mcp.CallToolResult, ListCategoriesOutput, error) {
	nodes := s.deps.Taxonomy.All()
	if input.Type != "" {
		typ := model.CategoryType(strings.ToLower(strings.TrimSpace(input.Type)))
		if !typ.IsValid() {
			return nil, ListCategoriesOutput{}, fmt.Errorf("unknown category type %q", input.Type)
		}
		nodes = s.deps.Taxonomy.ByType(typ)
	}

	out := ListCategoriesOutput{Categories: make([]CategoryOutput, 0, len(nodes))}
	for _, n := range nodes {
		c := CategoryOutput{
			ID:    n.ID,
			Slug:  n.Slug,
			Name:  n.Name,
			Type:  string(n.Type),
			IsPnL: n.IsPnL,
		}
		if n.ParentID != nil {
			if parent, ok := s.deps.Taxonomy.ByID(*n.ParentID); ok {
				c.Parent = parent.Slug
			}
		}
		out.Categories = append(out.Categories, c)
	}
	out.Count = len(out.Categories)
	return nil, out, nil
}

func (s *Server) configFor(ctx context.Context, input CategorizeInput) (model.CategorizationConfig, error) {
	var cfg model.CategorizationConfig
	if s.deps.Resolver != nil {
		cfg = s.deps.Resolver.Get(ctx, input.OrgID)
	} else {
		d := orgconfig.EcommerceDefaults()
		cfg = model.CategorizationConfig{
			Industry:           model.IndustryEcommerce,
			AutoApplyThreshold: d.AutoApplyThreshold,
			HybridThreshold:    d.HybridThreshold,
			UseGuardrails:      d.UseGuardrails,
		}
	}

	if input.AutoApplyThreshold != nil {
		if !inUnitRange(*input.AutoApplyThreshold) {
			return cfg, fmt.Errorf("%w: auto_apply_threshold must be within [0,1]", common.ErrInvalidConfig)
		}
		cfg.AutoApplyThreshold = *input.AutoApplyThreshold
	}
	if input.HybridThreshold != nil {
		if !inUnitRange(*input.HybridThreshold) {
			return cfg, fmt.Errorf("%w: hybrid_threshold must be within [0,1]", common.ErrInvalidConfig)
		}
		cfg.HybridThreshold = *input.HybridThreshold
	}
	if input.UseGuardrails != nil {
		cfg.UseGuardrails = *input.UseGuardrails
	}
	return cfg, nil
}

func transactionFromInput(input CategorizeInput) (model.NormalizedTransaction, error) {
	if strings.TrimSpace(input.OrgID) == "" {
		return model.NormalizedTransaction{}, fmt.Errorf("%w: org_id is required", common.ErrInvalidTransaction)
	}

	date, err := time.Parse(time.DateOnly, strings.TrimSpace(input.Date))
	if err != nil {
		return model.NormalizedTransaction{}, fmt.Errorf("%w: date must be YYYY-MM-DD", common.ErrInvalidTransaction)
	}

	cents := strings.TrimSpace(input.AmountCents)
	if cents == "" && strings.TrimSpace(input.Amount) != "" {
		cents, err = money.FromMajorString(input.Amount)
		if err != nil {
			return model.NormalizedTransaction{}, fmt.Errorf("%w: %w", common.ErrInvalidTransaction, err)
		}
	}
	if cents == "" {
		return model.NormalizedTransaction{}, fmt.Errorf("%w: amount_cents or amount is required", common.ErrInvalidTransaction)
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}

	return model.NormalizedTransaction{
		ID:           id,
		OrgID:        input.OrgID,
		Date:         date,
		AmountCents:  cents,
		Currency:     currency,
		Description:  input.Description,
		MerchantName: model.StringPtr(input.MerchantName),
		MCC:          model.StringPtr(input.MCC),
		Source:       model.SourceManual,
	}, nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
