package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealflow/internal/extractor"
	"dealflow/internal/logger"
	"dealflow/internal/publisher"
)

type stubParser struct {
	parseResult *extractor.ParseResult
	reply       string
	lastHistory []extractor.ChatMessage
	parseCalls  int
}

func (p *stubParser) Parse(context.Context, string) (*extractor.ParseResult, error) {
	p.parseCalls++
	return p.parseResult, nil
}

func (p *stubParser) Converse(_ context.Context, history []extractor.ChatMessage) (string, error) {
	p.lastHistory = append([]extractor.ChatMessage(nil), history...)
	return p.reply, nil
}

type stubWorkspace struct {
	report  publisher.SchemaReport
	deals   []publisher.DealSummary
	lastGeo string
}

func (w *stubWorkspace) VerifySchema(context.Context) (publisher.SchemaReport, error) {
	return w.report, nil
}

func (w *stubWorkspace) ListActiveDeals(_ context.Context, geo string) ([]publisher.DealSummary, error) {
	w.lastGeo = geo
	return w.deals, nil
}

func newTestService(parser *stubParser, workspace *stubWorkspace) Service {
	return NewService(parser, workspace, extractor.NewSessionStore(5), logger.NopLogger())
}

func TestHandleShowDeals(t *testing.T) {
	workspace := &stubWorkspace{deals: []publisher.DealSummary{
		{Partner: "Acme Media", Geo: "DE", PriceModel: "CPA", ExpirationDate: "2027-01-31"},
	}}
	svc := newTestService(&stubParser{}, workspace)

	resp, err := svc.Handle(context.Background(), ChatRequest{Message: "show deals in DE"})
	require.NoError(t, err)

	assert.Equal(t, "show_deals", resp.Intent)
	assert.Equal(t, "DE", workspace.lastGeo)
	require.Len(t, resp.Deals, 1)
	assert.Contains(t, resp.Reply, "Acme Media")
	assert.Contains(t, resp.Reply, "[DE]")
}

func TestHandleShowDealsEmpty(t *testing.T) {
	svc := newTestService(&stubParser{}, &stubWorkspace{})

	resp, err := svc.Handle(context.Background(), ChatRequest{Message: "show deals"})
	require.NoError(t, err)
	assert.Equal(t, "No active deals found.", resp.Reply)
}

func TestHandleVerifySchema(t *testing.T) {
	workspace := &stubWorkspace{report: publisher.SchemaReport{
		MissingFields: []string{"Sources"},
	}}
	svc := newTestService(&stubParser{}, workspace)

	resp, err := svc.Handle(context.Background(), ChatRequest{Message: "please verify structure"})
	require.NoError(t, err)

	assert.Equal(t, "verify_schema", resp.Intent)
	require.NotNil(t, resp.Schema)
	assert.False(t, resp.Schema.Valid)
	assert.Contains(t, resp.Reply, "missing fields: Sources")
}

func TestHandleParseDeal(t *testing.T) {
	parser := &stubParser{parseResult: &extractor.ParseResult{
		Deal:         extractor.ParsedDeal{PartnerName: "Acme Media"},
		Verification: extractor.VerificationSummary{Summary: "Deal for Acme Media"},
	}}
	svc := newTestService(parser, &stubWorkspace{})

	resp, err := svc.Handle(context.Background(), ChatRequest{Message: "parse deal: Acme DE CPA 1200"})
	require.NoError(t, err)

	assert.Equal(t, "parse_deal", resp.Intent)
	assert.Equal(t, 1, parser.parseCalls)
	require.NotNil(t, resp.Parse)
	assert.Equal(t, "Deal for Acme Media", resp.Reply)
}

func TestHandleFreeformKeepsBoundedHistory(t *testing.T) {
	parser := &stubParser{reply: "sure"}
	svc := newTestService(parser, &stubWorkspace{})

	var sessionID string
	for i := 0; i < 6; i++ {
		resp, err := svc.Handle(context.Background(), ChatRequest{
			SessionID: sessionID,
			Message:   "tell me something",
		})
		require.NoError(t, err)
		sessionID = resp.SessionID
		assert.Equal(t, "freeform", resp.Intent)
		assert.Equal(t, "sure", resp.Reply)
	}

	// User and assistant turns share the 5-entry window, so the model never
	// sees more than the limit regardless of session length.
	assert.Len(t, parser.lastHistory, 5)
	assert.Equal(t, extractor.RoleUser, parser.lastHistory[len(parser.lastHistory)-1].Role)
}

func TestHandleGeneratesSessionID(t *testing.T) {
	svc := newTestService(&stubParser{reply: "hello"}, &stubWorkspace{})

	resp, err := svc.Handle(context.Background(), ChatRequest{Message: "hi there"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
}

func TestHandleRejectsEmptyMessage(t *testing.T) {
	svc := newTestService(&stubParser{}, &stubWorkspace{})

	_, err := svc.Handle(context.Background(), ChatRequest{Message: "   "})
	assert.Error(t, err)
}
