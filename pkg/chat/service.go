// Package chat orchestrates one question/answer turn: input validation,
// rate limiting, the authentication handshake, follow-up resolution,
// database retrieval, answer generation, and session history.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/access"
	"github.com/cladtek/dbchat-engine/pkg/answer"
	"github.com/cladtek/dbchat-engine/pkg/apperrors"
	"github.com/cladtek/dbchat-engine/pkg/followup"
	"github.com/cladtek/dbchat-engine/pkg/inputguard"
	"github.com/cladtek/dbchat-engine/pkg/llm"
	"github.com/cladtek/dbchat-engine/pkg/registry"
	"github.com/cladtek/dbchat-engine/pkg/resolver"
	"github.com/cladtek/dbchat-engine/pkg/session"
)

// Modes a request may select. External mode never touches the database.
const (
	ModeInternal = "internal"
	ModeExternal = "external"
)

// Retriever is what the service needs from the query resolver. Nil when
// the database is unavailable and the service runs AI-only.
type Retriever interface {
	Resolve(ctx context.Context, question string, sess *session.Session) resolver.Outcome
	ExtendPrevious(ctx context.Context, filterText string, sess *session.Session) resolver.Outcome
}

var _ Retriever = (*resolver.Resolver)(nil)

// Service runs the chat pipeline.
type Service struct {
	store     *session.Store
	limiter   *session.RateLimiter
	ctrl      *access.Control
	engine    *followup.Engine
	retriever Retriever
	registry  *registry.Registry
	composer  *answer.Composer
	llm       llm.Client
	logger    *zap.Logger
}

// New wires the pipeline. retriever may be nil; the service then answers
// every question from the model alone.
func New(store *session.Store, limiter *session.RateLimiter, ctrl *access.Control, engine *followup.Engine, retriever Retriever, reg *registry.Registry, composer *answer.Composer, client llm.Client, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		limiter:   limiter,
		ctrl:      ctrl,
		engine:    engine,
		retriever: retriever,
		registry:  reg,
		composer:  composer,
		llm:       client,
		logger:    logger.Named("chat"),
	}
}

// AIOnly reports whether the service is running without a database.
func (s *Service) AIOnly() bool {
	return s.retriever == nil
}

// Request is one incoming chat turn.
type Request struct {
	Question  string
	SessionID string // empty means: mint one
	Mode      string // internal (default) or external
}

// Response is the reply for one turn.
type Response struct {
	Answer    string    `json:"response"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
}

// Ask runs one turn of the pipeline. Input-rejection sentinels from
// apperrors come back as errors; retrieval failures never do, they
// degrade to a model-only answer.
func (s *Service) Ask(ctx context.Context, req Request) (*Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, apperrors.ErrEmptyQuestion
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeInternal
	}
	if mode != ModeInternal && mode != ModeExternal {
		return nil, apperrors.ErrInvalidMode
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if !inputguard.ValidSessionID(sessionID) {
		return nil, apperrors.ErrInvalidSessionID
	}

	if status := s.limiter.Check(sessionID); !status.Allowed {
		s.logger.Warn("rate limit exceeded",
			zap.String("session_id", sessionID),
			zap.Time("reset_at", status.ResetAt))
		return nil, apperrors.ErrRateLimited
	}

	sanitized, err := inputguard.Sanitize(question)
	if err != nil {
		return nil, err
	}

	sess := s.store.GetOrCreate(sessionID)
	sess.Touch()

	// The authentication handshake consumes the turn entirely: no
	// retrieval, no model call, and password turns land masked in history.
	if auth := sess.AdvanceAuth(s.ctrl, sanitized); auth != nil {
		content := sanitized
		if auth.MaskContent {
			content = session.MaskedContent
		}
		now := time.Now()
		sess.Append(session.Message{Role: "user", Content: content, Timestamp: now})
		sess.Append(session.Message{Role: "assistant", Content: auth.Reply, Timestamp: now})
		return &Response{Answer: auth.Reply, SessionID: sessionID, Timestamp: now}, nil
	}

	history := sess.History()
	outcome := s.retrieve(ctx, sanitized, mode, sess)

	prompt, direct := s.composer.Build(answer.Request{
		Question: sanitized,
		Outcome:  outcome,
		History:  history,
		Mode:     mode,
	})

	text := direct
	if text == "" {
		text, err = s.llm.Generate(ctx, prompt, answer.SystemPrompt)
		if err != nil {
			s.logger.Error("answer generation failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", apperrors.ErrLLMUnavailable, err)
		}
		text = answer.MaskSensitiveData(text)
	}

	if sess.DebugActive() {
		text = answer.AppendDebugTrailer(answer.StripDebugTrailer(text), s.debugInfo(outcome))
	} else {
		// Also drops any trailer the model invented on its own.
		text = answer.StripDebugTrailer(text)
	}

	now := time.Now()
	userMsg := session.Message{Role: "user", Content: sanitized, Timestamp: now}
	userMsg.SQLQuery, userMsg.TableName = provenance(outcome)
	sess.Append(userMsg)
	sess.Append(session.Message{Role: "assistant", Content: text, Timestamp: now})

	return &Response{Answer: text, SessionID: sessionID, Timestamp: now}, nil
}

// retrieve picks the retrieval path for a turn. Filter-shaped follow-ups
// first try to extend the previous query in place; anything else goes
// through context rewriting and full resolution.
func (s *Service) retrieve(ctx context.Context, question, mode string, sess *session.Session) resolver.Outcome {
	if mode == ModeExternal || s.retriever == nil {
		return nil
	}

	if det := s.engine.Detect(question); det != nil && (det.Type == followup.FilterRequest || det.Type == followup.TimeFilter) {
		if outcome := s.retriever.ExtendPrevious(ctx, question, sess); outcome != nil {
			return outcome
		}
	}

	contextual := s.engine.BuildContextAwareQuery(question, sess.History())
	if contextual != question {
		s.logger.Debug("follow-up rewritten",
			zap.String("original", question),
			zap.String("rewritten", contextual))
	}
	return s.retriever.Resolve(ctx, contextual, sess)
}

// debugInfo extracts the trailer fields from an outcome.
func (s *Service) debugInfo(outcome resolver.Outcome) answer.DebugInfo {
	var info answer.DebugInfo
	info.SQL, info.TableName = provenance(outcome)
	switch o := outcome.(type) {
	case resolver.SuggestionsOutcome:
		info.TableName = o.TableName
	case resolver.TablesAvailableOutcome:
		info.TableName = "INFORMATION_SCHEMA.TABLES"
	case resolver.LegacyOutcome:
		info.TableName = o.Kind
	}
	if mapping := s.registry.Lookup(info.TableName); mapping != nil {
		info.Aliases = mapping.FieldAliases
	}
	return info
}

// provenance returns the SQL and table behind an outcome, for history
// and the debug trailer. Only outcomes that executed a validated query
// carry provenance.
func provenance(outcome resolver.Outcome) (sql, table string) {
	switch o := outcome.(type) {
	case resolver.CountOutcome:
		return o.SQL, o.TableName
	case resolver.RowsOutcome:
		return o.SQL, o.TableName
	case resolver.EmptyOutcome:
		return o.SQL, o.TableName
	}
	return "", ""
}
