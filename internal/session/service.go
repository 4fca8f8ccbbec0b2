package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobhelper/internal/clipboard"
	"jobhelper/internal/extract"
	"jobhelper/internal/llm"
	"jobhelper/internal/shared/apperr"
	"jobhelper/internal/shared/metrics"
	"jobhelper/internal/shared/telemetry"
)

const (
	msgInvalidPDF   = "Please upload a valid PDF file."
	msgInvalidImage = "Please upload a valid image file."
	msgInvalidURL   = "Please enter a valid URL."
	msgPDFFailed    = "Failed to extract text from the PDF."
	msgFetchFailed  = "Error fetching data"
	msgNoAPIKey     = "API key not configured. Please add it to your environment variables."
)

// DocumentExtractor turns uploaded résumés and company URLs into text.
type DocumentExtractor interface {
	PDFText(ctx context.Context, data []byte) (string, error)
	WebsiteText(ctx context.Context, url string) (string, error)
}

// Upload is one file received from the user.
type Upload struct {
	Name string
	Data []byte
}

// Deps are the collaborators of a Service.
type Deps struct {
	Machine   *Machine
	Documents DocumentExtractor
	// Completer is nil when no API key is configured; ConfigErr explains why.
	Completer llm.Completer
	ConfigErr error
	Clipboard clipboard.Writer
}

// Service runs the user-facing operations against one session.
type Service struct {
	machine   *Machine
	documents DocumentExtractor
	completer llm.Completer
	configErr error
	clipboard clipboard.Writer
}

// NewService constructs a Service.
func NewService(d Deps) *Service {
	return &Service{
		machine:   d.Machine,
		documents: d.Documents,
		completer: d.Completer,
		configErr: d.ConfigErr,
		clipboard: d.Clipboard,
	}
}

// Machine exposes the underlying state machine.
func (s *Service) Machine() *Machine {
	return s.machine
}

// Provider names the configured completion provider, or explains its absence.
func (s *Service) Provider() (string, error) {
	if s.completer == nil {
		if s.configErr != nil {
			return "", s.configErr
		}
		return "", apperr.Config(msgNoAPIKey)
	}
	return s.completer.Name(), nil
}

// State returns the current session snapshot.
func (s *Service) State() State {
	return s.machine.State()
}

// UploadResume extracts text from each PDF; the last readable one wins.
func (s *Service) UploadResume(ctx context.Context, files []Upload) (State, error) {
	if err := s.machine.RequireCollecting(); err != nil {
		return s.machine.State(), err
	}
	var lastErr error
	for _, f := range files {
		if !extract.IsPDF(f.Data) {
			lastErr = s.fail(apperr.Input(msgInvalidPDF))
			continue
		}
		text, err := s.documents.PDFText(ctx, f.Data)
		if err != nil {
			telemetry.Error("resume.extract_failed", map[string]any{"file": f.Name, "error": err})
			lastErr = s.fail(apperr.Fetch(msgPDFFailed, err))
			continue
		}
		if err := s.machine.SetResume(text); err != nil {
			return s.machine.State(), err
		}
		lastErr = nil
		telemetry.Info("resume.loaded", map[string]any{"file": f.Name, "chars": len(text)})
	}
	return s.machine.State(), lastErr
}

// UploadImages appends every image file in order.
func (s *Service) UploadImages(ctx context.Context, files []Upload) (State, error) {
	if err := s.machine.RequireCollecting(); err != nil {
		return s.machine.State(), err
	}
	var lastErr error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return s.machine.State(), err
		}
		mime, err := extract.ImageMIME(f.Data)
		if err != nil {
			lastErr = s.fail(apperr.Input(msgInvalidImage))
			continue
		}
		if err := s.machine.AddImage(Image{Name: f.Name, MIME: mime, Data: f.Data}); err != nil {
			return s.machine.State(), err
		}
		lastErr = nil
	}
	return s.machine.State(), lastErr
}

// FetchWebsite loads the company website text.
func (s *Service) FetchWebsite(ctx context.Context, url string) (State, error) {
	if err := s.machine.RequireCollecting(); err != nil {
		return s.machine.State(), err
	}
	url = strings.TrimSpace(url)
	if url == "" {
		err := s.fail(apperr.Input(msgInvalidURL))
		return s.machine.State(), err
	}
	text, err := s.documents.WebsiteText(ctx, url)
	if err != nil {
		telemetry.Error("website.fetch_failed", map[string]any{"url": url, "error": err})
		err = s.fail(apperr.Fetch(msgFetchFailed, err))
		return s.machine.State(), err
	}
	if err := s.machine.SetWebsite(url, text); err != nil {
		return s.machine.State(), err
	}
	telemetry.Info("website.loaded", map[string]any{"url": url, "chars": len(text)})
	return s.machine.State(), nil
}

// Submit sends the collected inputs and waits for the answers. It reports
// false without doing anything when the session is not collecting.
func (s *Service) Submit(ctx context.Context) (State, bool, error) {
	if !s.machine.State().CanSubmit {
		return s.machine.State(), false, nil
	}
	if s.completer == nil {
		_, err := s.Provider()
		err = s.fail(err)
		return s.machine.State(), false, err
	}

	bundle, ok := s.machine.BeginSubmit()
	if !ok {
		return s.machine.State(), false, nil
	}

	metrics.IncSubmitStarted()
	startedAt := time.Now()
	pairs, err := s.answer(ctx, bundle)
	metrics.ObserveSubmitDurationMs(float64(time.Since(startedAt).Microseconds()) / 1000.0)
	if err != nil {
		metrics.IncSubmitFailed(string(apperr.KindOf(err)))
		telemetry.Error("submit.failed", map[string]any{
			"provider": s.completer.Name(),
			"kind":     string(apperr.KindOf(err)),
			"error":    err,
		})
		s.machine.Fail(err)
		return s.machine.State(), true, err
	}
	metrics.IncSubmitCompleted()
	telemetry.Info("submit.answered", map[string]any{
		"provider": s.completer.Name(),
		"pairs":    len(pairs),
		"images":   len(bundle.Images),
	})
	s.machine.Complete(pairs)
	return s.machine.State(), true, nil
}

func (s *Service) answer(ctx context.Context, b Bundle) (pairs []llm.QAPair, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pairs = nil
			err = apperr.Upstream(s.upstreamMsg(), fmt.Errorf("panic: %v", rec))
		}
	}()

	images := make([]string, 0, len(b.Images))
	for _, img := range b.Images {
		images = append(images, extract.DataURI(img.MIME, img.Data))
	}
	req := llm.Assemble(b.ResumeText, b.WebsiteText, images)

	raw, err := s.completer.Complete(ctx, req)
	if err != nil {
		return nil, apperr.Upstream(s.upstreamMsg(), err)
	}
	return llm.Parse(raw)
}

func (s *Service) upstreamMsg() string {
	return "Error contacting " + s.completer.Name()
}

// Copy places the answer shown at position (0-based) on the clipboard.
func (s *Service) Copy(position int) (string, error) {
	st := s.machine.State()
	if st.Phase != PhaseRevealing && st.Phase != PhaseDone {
		return "", ErrInvalidPhase
	}
	if position < 0 || position >= len(st.QAPairs) {
		return "", apperr.Input(fmt.Sprintf("No answer at position %d.", position))
	}
	if s.clipboard == nil {
		return "", clipboard.ErrUnavailable
	}
	answer := st.QAPairs[position].Answer
	if err := s.clipboard.WriteAll(answer); err != nil {
		return "", fmt.Errorf("copy answer: %w", err)
	}
	return answer, nil
}

// Reset returns a finished session to an empty Collecting state.
func (s *Service) Reset() (State, error) {
	if err := s.machine.Reset(); err != nil {
		return s.machine.State(), err
	}
	return s.machine.State(), nil
}

func (s *Service) fail(err error) error {
	s.machine.SetError(err)
	return err
}
