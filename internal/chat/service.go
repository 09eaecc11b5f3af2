package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"dealflow/internal/extractor"
	"dealflow/internal/logger"
	"dealflow/internal/publisher"
	pkgerrors "dealflow/pkg/errors"
)

// DealParser is the extraction surface the chat uses: structured parsing
// for explicit requests, free conversation for everything else.
type DealParser interface {
	Parse(ctx context.Context, text string) (*extractor.ParseResult, error)
	Converse(ctx context.Context, history []extractor.ChatMessage) (string, error)
}

// Workspace is the read-only workspace surface exposed through chat.
type Workspace interface {
	VerifySchema(ctx context.Context) (publisher.SchemaReport, error)
	ListActiveDeals(ctx context.Context, geo string) ([]publisher.DealSummary, error)
}

type Service interface {
	Handle(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type service struct {
	parser    DealParser
	workspace Workspace
	sessions  *extractor.SessionStore
	logger    logger.Logger
}

func NewService(parser DealParser, workspace Workspace, sessions *extractor.SessionStore, log logger.Logger) Service {
	return &service{
		parser:    parser,
		workspace: workspace,
		sessions:  sessions,
		logger:    log,
	}
}

// Handle classifies the message and dispatches on intent. The switch is
// exhaustive; a new intent that is not wired here falls through to an
// internal error rather than silently becoming freeform.
func (s *service) Handle(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, pkgerrors.ErrValidation.WithMessage("message must not be empty")
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	intent := extractor.ClassifyIntent(message)
	s.logger.DebugwCtx(ctx, "Chat message classified",
		"session_id", sessionID,
		"intent", intent.String(),
	)

	resp := &ChatResponse{SessionID: sessionID, Intent: intent.String()}

	switch intent {
	case extractor.IntentShowDeals:
		deals, err := s.workspace.ListActiveDeals(ctx, geoHint(message))
		if err != nil {
			return nil, err
		}
		resp.Deals = deals
		resp.Reply = formatDeals(deals)

	case extractor.IntentVerifySchema:
		report, err := s.workspace.VerifySchema(ctx)
		if err != nil {
			return nil, err
		}
		resp.Schema = &report
		resp.Reply = formatSchemaReport(report)

	case extractor.IntentParseDeal:
		result, err := s.parser.Parse(ctx, message)
		if err != nil {
			return nil, err
		}
		resp.Parse = result
		resp.Reply = result.Verification.Summary

	case extractor.IntentFreeform:
		reply, err := s.converse(ctx, sessionID, message)
		if err != nil {
			return nil, err
		}
		resp.Reply = reply

	default:
		return nil, pkgerrors.ErrInternal.WithMessage(fmt.Sprintf("unhandled chat intent %q", intent.String()))
	}

	return resp, nil
}

func (s *service) converse(ctx context.Context, sessionID, message string) (string, error) {
	s.sessions.Append(sessionID, extractor.RoleUser, message)

	reply, err := s.parser.Converse(ctx, s.sessions.History(sessionID))
	if err != nil {
		return "", err
	}

	s.sessions.Append(sessionID, extractor.RoleAssistant, reply)
	return reply, nil
}

// geoHint picks the first standalone 2-letter uppercase token out of the
// message, treating it as a region filter.
func geoHint(message string) string {
	for _, token := range strings.FieldsFunc(message, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if len(token) == 2 && token == strings.ToUpper(token) {
			return token
		}
	}
	return ""
}

func formatDeals(deals []publisher.DealSummary) string {
	if len(deals) == 0 {
		return "No active deals found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d active deal(s):\n", len(deals))
	for _, deal := range deals {
		fmt.Fprintf(&b, "- %s", deal.Partner)
		if deal.Geo != "" {
			fmt.Fprintf(&b, " [%s]", deal.Geo)
		}
		if deal.PriceModel != "" {
			fmt.Fprintf(&b, " %s", deal.PriceModel)
		}
		if deal.ExpirationDate != "" {
			fmt.Fprintf(&b, " (expires %s)", deal.ExpirationDate)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSchemaReport(report publisher.SchemaReport) string {
	if report.Valid {
		return "Workspace schema matches the required structure."
	}

	var parts []string
	if len(report.MissingFields) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(report.MissingFields, ", "))
	}
	if len(report.MismatchedTypes) > 0 {
		parts = append(parts, "mismatched types: "+strings.Join(report.MismatchedTypes, ", "))
	}
	if len(report.MissingOptions) > 0 {
		parts = append(parts, "missing options: "+strings.Join(report.MissingOptions, ", "))
	}
	return "Workspace schema problems found. " + strings.Join(parts, "; ") + "."
}
