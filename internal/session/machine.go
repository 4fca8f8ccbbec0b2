package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobhelper/internal/llm"
	"jobhelper/internal/shared/apperr"
	"jobhelper/internal/shared/telemetry"
)

// Phase is the single active stage of a session.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseSubmitting Phase = "submitting"
	PhaseRevealing  Phase = "revealing"
	PhaseDone       Phase = "done"
)

// ErrInvalidPhase is returned for actions the current phase does not offer.
var ErrInvalidPhase = errors.New("action not available in current phase")

// Image is an uploaded question screenshot.
type Image struct {
	Name string
	MIME string
	Data []byte
}

// Bundle accumulates the inputs collected before a submit.
type Bundle struct {
	ResumeText     string
	Images         []Image
	WebsiteURL     string
	WebsiteText    string
	WebsiteFetched bool
}

func (b Bundle) clone() Bundle {
	b.Images = slices.Clone(b.Images)
	return b
}

// ErrorInfo is the user-facing error held by a session.
type ErrorInfo struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// State is an immutable snapshot of a session.
type State struct {
	SessionID      string       `json:"sessionId"`
	Phase          Phase        `json:"phase"`
	Error          *ErrorInfo   `json:"error,omitempty"`
	ResumeLoaded   bool         `json:"resumeLoaded"`
	ImageCount     int          `json:"imageCount"`
	WebsiteURL     string       `json:"websiteUrl,omitempty"`
	WebsiteFetched bool         `json:"websiteFetched"`
	QAPairs        []llm.QAPair `json:"qaPairs"`
	Revealed       string       `json:"revealed"`
	CanSubmit      bool         `json:"canSubmit"`
}

// Machine serializes the session lifecycle
// Collecting -> Submitting -> Revealing -> Done -> Collecting.
type Machine struct {
	mu       sync.Mutex
	tick     time.Duration
	onReveal func(Step)

	id       string
	phase    Phase
	err      error
	bundle   Bundle
	pairs    []llm.QAPair
	revealed string

	revealGen    int
	cancelReveal context.CancelFunc
	changed      chan struct{}
}

// Option configures a Machine.
type Option func(*Machine)

// WithRevealHook registers fn to receive every reveal step.
func WithRevealHook(fn func(Step)) Option {
	return func(m *Machine) { m.onReveal = fn }
}

// NewMachine returns a machine in Collecting that reveals one rune per tick.
func NewMachine(tick time.Duration, opts ...Option) *Machine {
	m := &Machine{
		tick:    tick,
		id:      uuid.NewString(),
		phase:   PhaseCollecting,
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a snapshot of the session.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Snapshot returns the state together with a channel closed on the next change.
func (m *Machine) Snapshot() (State, <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(), m.changed
}

// Wait blocks until the session leaves Submitting and Revealing.
func (m *Machine) Wait(ctx context.Context) (State, error) {
	for {
		st, changed := m.Snapshot()
		if st.Phase != PhaseSubmitting && st.Phase != PhaseRevealing {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-changed:
		}
	}
}

func (m *Machine) snapshotLocked() State {
	st := State{
		SessionID:      m.id,
		Phase:          m.phase,
		ResumeLoaded:   m.bundle.ResumeText != "",
		ImageCount:     len(m.bundle.Images),
		WebsiteURL:     m.bundle.WebsiteURL,
		WebsiteFetched: m.bundle.WebsiteFetched,
		QAPairs:        slices.Clone(m.pairs),
		Revealed:       m.revealed,
		CanSubmit:      m.phase == PhaseCollecting,
	}
	if st.QAPairs == nil {
		st.QAPairs = []llm.QAPair{}
	}
	if m.err != nil {
		st.Error = &ErrorInfo{Kind: apperr.KindOf(m.err), Message: apperr.Message(m.err)}
	}
	return st
}

// Bundle returns a copy of the collected inputs.
func (m *Machine) Bundle() Bundle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bundle.clone()
}

// SetError replaces the current error without changing phase.
func (m *Machine) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	m.notifyLocked()
}

// RequireCollecting fails with an InputError outside Collecting.
func (m *Machine) RequireCollecting() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requireCollectingLocked()
}

func (m *Machine) requireCollectingLocked() error {
	if m.phase == PhaseCollecting {
		return nil
	}
	err := apperr.Input("Uploads are only accepted before submitting.")
	m.err = err
	m.notifyLocked()
	return err
}

// SetResume replaces the résumé text and clears the error.
func (m *Machine) SetResume(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireCollectingLocked(); err != nil {
		return err
	}
	m.bundle.ResumeText = text
	m.err = nil
	m.notifyLocked()
	return nil
}

// AddImage appends a question screenshot and clears the error.
func (m *Machine) AddImage(img Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireCollectingLocked(); err != nil {
		return err
	}
	m.bundle.Images = append(m.bundle.Images, img)
	m.err = nil
	m.notifyLocked()
	return nil
}

// SetWebsite records the fetched website text and clears the error.
func (m *Machine) SetWebsite(url, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireCollectingLocked(); err != nil {
		return err
	}
	m.bundle.WebsiteURL = url
	m.bundle.WebsiteText = text
	m.bundle.WebsiteFetched = true
	m.err = nil
	m.notifyLocked()
	return nil
}

// BeginSubmit moves Collecting to Submitting and returns the inputs to send.
// In any other phase it does nothing and reports false.
func (m *Machine) BeginSubmit() (Bundle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseCollecting {
		return Bundle{}, false
	}
	m.err = nil
	m.transitionLocked(PhaseSubmitting)
	return m.bundle.clone(), true
}

// Complete moves Submitting to Revealing and starts revealing pairs.
func (m *Machine) Complete(pairs []llm.QAPair) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseSubmitting {
		return false
	}
	m.pairs = slices.Clone(pairs)
	m.revealed = ""
	m.transitionLocked(PhaseRevealing)
	m.startRevealLocked(Serialize(pairs))
	return true
}

// Fail moves Submitting back to Collecting, keeping the inputs and err.
func (m *Machine) Fail(err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseSubmitting {
		return false
	}
	m.err = err
	m.transitionLocked(PhaseCollecting)
	return true
}

// Reset clears everything and returns Done to Collecting.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseDone {
		return ErrInvalidPhase
	}
	m.stopRevealLocked()
	m.bundle = Bundle{}
	m.pairs = nil
	m.revealed = ""
	m.err = nil
	m.id = uuid.NewString()
	m.transitionLocked(PhaseCollecting)
	return nil
}

// Close cancels a running reveal.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopRevealLocked()
}

func (m *Machine) startRevealLocked(text string) {
	m.stopRevealLocked()
	m.revealGen++
	gen := m.revealGen
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelReveal = cancel

	go func() {
		defer cancel()
		finished := Play(ctx, Steps(text), m.tick, func(step Step) {
			m.mu.Lock()
			if m.revealGen != gen {
				m.mu.Unlock()
				return
			}
			m.revealed = step.Text
			m.notifyLocked()
			hook := m.onReveal
			m.mu.Unlock()
			if hook != nil {
				hook(step)
			}
		})
		if !finished {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.revealGen == gen && m.phase == PhaseRevealing {
			m.cancelReveal = nil
			m.transitionLocked(PhaseDone)
		}
	}()
}

func (m *Machine) stopRevealLocked() {
	m.revealGen++
	if m.cancelReveal != nil {
		m.cancelReveal()
		m.cancelReveal = nil
	}
}

func (m *Machine) transitionLocked(to Phase) {
	from := m.phase
	m.phase = to
	telemetry.Info("session.transition", map[string]any{
		"session_id": m.id,
		"from":       string(from),
		"to":         string(to),
	})
	m.notifyLocked()
}

func (m *Machine) notifyLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}
