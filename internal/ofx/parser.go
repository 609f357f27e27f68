// Package ofx converts OFX/QFX bank and credit card statements into normalized transactions.
package ofx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/money"
)

var idNamespace = uuid.MustParse("3d0c8a61-7f1e-4b7a-9a0e-2c51f6d4e8b3")

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line that lost their closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser reads OFX/QFX statements for one organization.
type Parser struct {
	logger *slog.Logger
	orgID  string
}

// NewParser creates a parser that assigns transactions to orgID.
func NewParser(orgID string, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{orgID: orgID, logger: common.ComponentLogger(logger, "ofx")}
}

// TransactionID returns the stable ID of an OFX transaction within an organization's account.
func TransactionID(orgID, accountID, fitID string) string {
	key := strings.Join([]string{orgID, accountID, fitID}, "\x00")
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// preprocess fixes common formatting issues in OFX files.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file. Statements that cannot be converted are
// skipped with a warning; a file that is not OFX at all is an error.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.NormalizedTransaction, error) {
	if strings.TrimSpace(p.orgID) == "" {
		return nil, fmt.Errorf("%w: organization ID is required", common.ErrInvalidConfig)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var (
		transactions     []model.NormalizedTransaction
		bankStmts, cards int
	)

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		txns, err := p.convertList(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID), currencyOf(stmt.CurDef))
		if err != nil {
			p.logger.Warn("Failed to process bank statement", "account", stmt.BankAcctFrom.AcctID, "error", err)
			continue
		}
		transactions = append(transactions, txns...)
	}

	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		cards++
		txns, err := p.convertList(stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID), currencyOf(stmt.CurDef))
		if err != nil {
			p.logger.Warn("Failed to process credit card statement", "account", stmt.CCAcctFrom.AcctID, "error", err)
			continue
		}
		transactions = append(transactions, txns...)
	}

	p.logger.Info("Parsed OFX file",
		"org_id", p.orgID,
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", cards)

	return transactions, nil
}

func (p *Parser) convertList(list []ofxgo.Transaction, accountID, currency string) ([]model.NormalizedTransaction, error) {
	transactions := make([]model.NormalizedTransaction, 0, len(list))
	for _, ofxTx := range list {
		txn, err := p.convertTransaction(ofxTx, accountID, currency)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", ofxTx.FiTID, err)
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

type rawTransaction struct {
	AccountID string `json:"account_id"`
	FITID     string `json:"fitid"`
	Type      string `json:"trntype"`
	Name      string `json:"name,omitempty"`
	Memo      string `json:"memo,omitempty"`
	Payee     string `json:"payee,omitempty"`
	CheckNum  string `json:"checknum,omitempty"`
	Amount    string `json:"trnamt"`
}

// convertTransaction converts an OFX transaction. OFX already reports debits as
// negative amounts, which matches the normalized sign convention.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID, currency string) (model.NormalizedTransaction, error) {
	major := ofxTx.TrnAmt.FloatString(4)
	cents, err := money.FromMajorString(major)
	if err != nil {
		return model.NormalizedTransaction{}, err
	}

	var payee string
	if ofxTx.Payee != nil {
		payee = string(ofxTx.Payee.Name)
	}

	raw, err := json.Marshal(rawTransaction{
		AccountID: accountID,
		FITID:     string(ofxTx.FiTID),
		Type:      fmt.Sprint(ofxTx.TrnType),
		Name:      string(ofxTx.Name),
		Memo:      string(ofxTx.Memo),
		Payee:     payee,
		CheckNum:  string(ofxTx.CheckNum),
		Amount:    major,
	})
	if err != nil {
		return model.NormalizedTransaction{}, fmt.Errorf("failed to encode raw payload: %w", err)
	}

	txn := model.NormalizedTransaction{
		ID:           TransactionID(p.orgID, accountID, string(ofxTx.FiTID)),
		OrgID:        p.orgID,
		Date:         ofxTx.DtPosted.Time,
		AmountCents:  cents,
		Currency:     currency,
		Description:  description(ofxTx),
		MerchantName: model.StringPtr(extractMerchantName(ofxTx)),
		Source:       model.SourceOFX,
		Raw:          raw,
	}
	if ofxTx.SIC != 0 {
		mcc := fmt.Sprintf("%04d", int(ofxTx.SIC))
		txn.MCC = &mcc
	}
	return txn, nil
}

func currencyOf(cur ofxgo.CurrSymbol) string {
	s := cur.String()
	if s == "" || s == "XXX" {
		return "USD"
	}
	return s
}

// description joins NAME and MEMO, skipping a memo that repeats the name.
func description(tx ofxgo.Transaction) string {
	name := strings.TrimSpace(string(tx.Name))
	memo := strings.TrimSpace(string(tx.Memo))
	switch {
	case name == "":
		return memo
	case memo == "" || strings.EqualFold(name, memo):
		return name
	default:
		return name + " " + memo
	}
}

var purchasePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// extractMerchantName returns the cleanest merchant name OFX offers.
func extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range purchasePrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " posting dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	if isGenericDescription(name) {
		return ""
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// Accounts returns the account IDs present in an OFX file.
func Accounts(reader io.Reader) ([]string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	seen := make(map[string]bool)
	var accounts []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			accounts = append(accounts, id)
		}
	}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(string(stmt.BankAcctFrom.AcctID))
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(string(stmt.CCAcctFrom.AcctID))
		}
	}
	return accounts, nil
}
