package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shandysiswandi/authpilot/internal/pkg/goerror"
)

type InspectSessionInput struct {
	Target string `validate:"required"`
	Handle string
}

// CookieSummary describes a stored cookie without its value.
type CookieSummary struct {
	Name     string
	Domain   string
	Expires  *time.Time
	Expired  bool
	Secure   bool
	HTTPOnly bool
}

type InspectSessionOutput struct {
	Target     string
	URL        string
	CapturedAt time.Time
	Cookies    []CookieSummary
	Origins    int
}

// InspectSession loads a stored session and summarizes it. Cookie values
// never leave this function.
func (s *Usecase) InspectSession(ctx context.Context, in InspectSessionInput) (*InspectSessionOutput, error) {
	ctx, span := s.startSpan(ctx, "InspectSession")
	defer span.End()

	if s.validator != nil {
		if err := s.validator.Validate(in); err != nil {
			return nil, goerror.NewInvalidConfig(err)
		}
	}

	st, err := s.repoSession.LoadSession(ctx, in.Target, in.Handle)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewInvalidConfig(nil, "handle", "no stored session found")
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load stored session", "target", in.Target, "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	out := &InspectSessionOutput{
		Target:     st.Target,
		URL:        st.URL,
		CapturedAt: st.CapturedAt,
		Cookies:    make([]CookieSummary, 0, len(st.Cookies)),
		Origins:    len(st.Origins),
	}
	for _, c := range st.Cookies {
		out.Cookies = append(out.Cookies, CookieSummary{
			Name:     c.Name,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Expired:  c.Expires != nil && c.Expires.Before(now),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	sort.Slice(out.Cookies, func(i, j int) bool {
		if out.Cookies[i].Domain != out.Cookies[j].Domain {
			return out.Cookies[i].Domain < out.Cookies[j].Domain
		}
		return out.Cookies[i].Name < out.Cookies[j].Name
	})

	return out, nil
}
