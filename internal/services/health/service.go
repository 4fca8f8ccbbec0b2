package health

import "jobhelper/internal/shared/apperr"

// ProviderFunc reports the completion provider and why it is unusable, if it is.
type ProviderFunc func() (string, error)

// Service encapsulates health-related checks.
type Service struct {
	provider ProviderFunc
}

// NewService constructs a new health service.
func NewService(provider ProviderFunc) *Service {
	return &Service{provider: provider}
}

// Status returns the health payload. The process is always ok; ready is
// false while no completion provider is configured.
func (s *Service) Status() map[string]any {
	out := map[string]any{"ok": true, "ready": true}
	if s.provider == nil {
		return out
	}
	name, err := s.provider()
	if name != "" {
		out["provider"] = name
	}
	if err != nil {
		out["ready"] = false
		out["reason"] = apperr.Message(err)
	}
	return out
}
