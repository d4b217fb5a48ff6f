package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/shandysiswandi/authpilot/internal/authflow/entity"
	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
	"github.com/shandysiswandi/authpilot/internal/pkg/instrument"
	"github.com/shandysiswandi/authpilot/internal/pkg/seal"
	"github.com/shandysiswandi/authpilot/internal/pkg/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	stateFile = "auth-state.json"

	contentTypeJSON   = "application/json"
	contentTypeSealed = "application/octet-stream"
	contentTypePNG    = "image/png"

	metaSealed = "sealed"
)

// Store keeps captured sessions in one storage and screenshots in another.
type Store struct {
	sessions    storage.Storage
	screenshots storage.Storage
	sealer      seal.Sealer
	ins         instrument.Instrumentation
}

func NewStore(sessions, screenshots storage.Storage, sealer seal.Sealer, ins instrument.Instrumentation) *Store {
	if sealer == nil {
		sealer = seal.Plain{}
	}
	if ins == nil {
		ins = instrument.NewNoop()
	}
	return &Store{sessions: sessions, screenshots: screenshots, sealer: sealer, ins: ins}
}

// HandleFor returns the handle a target's session is saved under.
func HandleFor(target string) string {
	return path.Join(target, stateFile)
}

func (s *Store) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("authflow.outbound.session").Start(ctx, name)
}

func (s *Store) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func scope(target string) seal.Scope {
	return seal.Scope{Target: target, Purpose: seal.PurposeSessionState}
}

// SaveSession seals st and replaces the target's stored session.
func (s *Store) SaveSession(ctx context.Context, target string, st *entity.StoredSession) (handle string, err error) {
	ctx, span := s.startSpan(ctx, "SaveSession")
	defer func() { s.endSpan(span, err) }()

	raw, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("session: encode: %w", err)
	}

	body, err := s.sealer.Seal(raw, scope(target))
	if err != nil {
		return "", fmt.Errorf("session: seal: %w", err)
	}

	sealed := seal.IsSealed(body)
	opts := storage.PutOptions{ContentType: contentTypeJSON}
	if sealed {
		opts = storage.PutOptions{ContentType: contentTypeSealed, Metadata: map[string]string{metaSealed: "true"}}
	}
	span.SetAttributes(attribute.Bool("sealed", sealed), attribute.Int("cookies", len(st.Cookies)))

	info, err := s.sessions.PutObject(ctx, HandleFor(target), body, opts)
	if err != nil {
		return "", fmt.Errorf("session: put: %w", err)
	}

	return info.Key, nil
}

// LoadSession reads a stored session. An empty handle selects the target's
// default handle. Missing sessions return goerror.ErrNotFound.
func (s *Store) LoadSession(ctx context.Context, target, handle string) (st *entity.StoredSession, err error) {
	ctx, span := s.startSpan(ctx, "LoadSession")
	defer func() { s.endSpan(span, err) }()

	if handle == "" {
		handle = HandleFor(target)
	}

	body, _, err := s.sessions.GetObject(ctx, handle)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}

	raw, err := s.sealer.Open(body, scope(target))
	if err != nil {
		return nil, fmt.Errorf("session: open: %w", err)
	}

	st = &entity.StoredSession{}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return st, nil
}

// SaveScreenshot stores a PNG under <target>/<runID>/<name>.png and returns
// its location.
func (s *Store) SaveScreenshot(ctx context.Context, runID, target, name string, png []byte) (loc string, err error) {
	ctx, span := s.startSpan(ctx, "SaveScreenshot")
	defer func() { s.endSpan(span, err) }()

	info, err := s.screenshots.PutObject(ctx, path.Join(target, runID, name+".png"), png, storage.PutOptions{ContentType: contentTypePNG})
	if err != nil {
		return "", fmt.Errorf("session: put screenshot: %w", err)
	}
	return info.Location, nil
}
