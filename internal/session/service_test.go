package session_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"jobhelper/internal/llm"
	"jobhelper/internal/session"
	"jobhelper/internal/shared/apperr"
	"jobhelper/mocks"
)

var fakePDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

type fixture struct {
	svc       *session.Service
	docs      *mocks.MockDocumentExtractor
	completer *mocks.MockCompleter
	clip      *mocks.MockClipboard
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		docs:      new(mocks.MockDocumentExtractor),
		completer: new(mocks.MockCompleter),
		clip:      new(mocks.MockClipboard),
	}
	m := session.NewMachine(time.Microsecond)
	t.Cleanup(m.Close)
	f.svc = session.NewService(session.Deps{
		Machine:   m,
		Documents: f.docs,
		Completer: f.completer,
		Clipboard: f.clip,
	})
	return f
}

func waitDone(t *testing.T, svc *session.Service) session.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := svc.Machine().Wait(ctx)
	require.NoError(t, err)
	return st
}

func TestServiceEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	img := pngBytes(t)

	f.docs.On("PDFText", mock.Anything, fakePDF).Return("Experienced engineer", nil)
	f.docs.On("WebsiteText", mock.Anything, "https://acme.example").Return("Acme Corp hires engineers", nil)
	f.completer.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.PromptRequest) bool {
		if len(req.Parts) != 2 || req.Parts[0].Type != llm.PartImage || req.Parts[1].Type != llm.PartText {
			return false
		}
		return strings.HasPrefix(req.Parts[0].ImageURL, "data:image/png;base64,") &&
			strings.Contains(req.Parts[1].Text, "Experienced engineer") &&
			strings.Contains(req.Parts[1].Text, "Acme Corp hires engineers")
	})).Return(`Here you go: {"qaPair":[{"index":0,"question":"Why join?","answer":"I align with Acme's mission."}]}`, nil).Once()
	f.clip.On("WriteAll", "I align with Acme's mission.").Return(nil).Once()

	st, err := f.svc.UploadResume(ctx, []session.Upload{{Name: "cv.pdf", Data: fakePDF}})
	require.NoError(t, err)
	assert.True(t, st.ResumeLoaded)

	st, err = f.svc.UploadImages(ctx, []session.Upload{{Name: "q1.png", Data: img}})
	require.NoError(t, err)
	assert.Equal(t, 1, st.ImageCount)

	st, err = f.svc.FetchWebsite(ctx, "  https://acme.example ")
	require.NoError(t, err)
	assert.True(t, st.WebsiteFetched)
	assert.Equal(t, "https://acme.example", st.WebsiteURL)

	st, started, err := f.svc.Submit(ctx)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Contains(t, []session.Phase{session.PhaseRevealing, session.PhaseDone}, st.Phase)

	st = waitDone(t, f.svc)
	assert.Equal(t, session.PhaseDone, st.Phase)
	assert.Equal(t, "Q1: Why join?\nA1: I align with Acme's mission.", st.Revealed)
	require.Len(t, st.QAPairs, 1)

	answer, err := f.svc.Copy(0)
	require.NoError(t, err)
	assert.Equal(t, "I align with Acme's mission.", answer)

	st, err = f.svc.Reset()
	require.NoError(t, err)
	assert.Equal(t, session.PhaseCollecting, st.Phase)
	assert.False(t, st.ResumeLoaded)

	f.docs.AssertExpectations(t)
	f.completer.AssertExpectations(t)
	f.clip.AssertExpectations(t)
}

func TestServiceSubmitWithoutKeyIsConfigError(t *testing.T) {
	m := session.NewMachine(time.Microsecond)
	svc := session.NewService(session.Deps{
		Machine:   m,
		ConfigErr: apperr.Config("API key not configured. Please set OPENAI_API_KEY in your environment."),
	})

	st, started, err := svc.Submit(context.Background())
	require.Error(t, err)
	assert.False(t, started)
	assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
	assert.Equal(t, session.PhaseCollecting, st.Phase)
	require.NotNil(t, st.Error)
	assert.Equal(t, apperr.KindConfig, st.Error.Kind)
}

func TestServiceUpstreamFailureReturnsToCollecting(t *testing.T) {
	f := newFixture(t)
	f.completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("status 500")).Once()

	st, started, err := f.svc.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, started)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Equal(t, session.PhaseCollecting, st.Phase)
	require.NotNil(t, st.Error)
	assert.Equal(t, "Error contacting OpenAI: status 500", st.Error.Message)
	assert.True(t, st.CanSubmit)
}

func TestServiceMalformedCompletionIsFormatError(t *testing.T) {
	f := newFixture(t)
	f.completer.On("Complete", mock.Anything, mock.Anything).Return("I cannot help with that.", nil).Once()

	st, _, err := f.svc.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindFormat, apperr.KindOf(err))
	assert.ErrorIs(t, err, llm.ErrNoJSON)
	assert.Equal(t, session.PhaseCollecting, st.Phase)
	assert.Empty(t, st.QAPairs)
}

func TestServiceEmptyPairsStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.completer.On("Complete", mock.Anything, mock.Anything).Return(`{"qaPair":[]}`, nil).Once()

	_, started, err := f.svc.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, started)

	st := waitDone(t, f.svc)
	assert.Equal(t, session.PhaseDone, st.Phase)
	assert.Empty(t, st.QAPairs)
	assert.Empty(t, st.Revealed)
}

func TestServicePanickingCompleterIsUpstreamError(t *testing.T) {
	f := newFixture(t)
	f.completer.On("Complete", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	}).Return("", nil).Once()

	st, _, err := f.svc.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Equal(t, session.PhaseCollecting, st.Phase)
}

func TestServiceRejectsInvalidFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.svc.UploadResume(ctx, []session.Upload{{Name: "notes.txt", Data: []byte("plain text")}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInput, apperr.KindOf(err))
	assert.Equal(t, "Please upload a valid PDF file.", st.Error.Message)
	assert.False(t, st.ResumeLoaded)

	st, err = f.svc.UploadImages(ctx, []session.Upload{{Name: "cv.pdf", Data: fakePDF}})
	require.Error(t, err)
	assert.Equal(t, "Please upload a valid image file.", st.Error.Message)
	assert.Equal(t, 0, st.ImageCount)

	st, err = f.svc.FetchWebsite(ctx, "   ")
	require.Error(t, err)
	assert.Equal(t, "Please enter a valid URL.", st.Error.Message)
	assert.Equal(t, session.PhaseCollecting, st.Phase)

	f.docs.AssertNotCalled(t, "PDFText", mock.Anything, mock.Anything)
	f.docs.AssertNotCalled(t, "WebsiteText", mock.Anything, mock.Anything)
}

func TestServiceExtractionFailuresAreFetchErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.docs.On("PDFText", mock.Anything, fakePDF).Return("", errors.New("corrupt xref")).Once()
	f.docs.On("WebsiteText", mock.Anything, "https://down.example").Return("", errors.New("status 502")).Once()

	st, err := f.svc.UploadResume(ctx, []session.Upload{{Name: "cv.pdf", Data: fakePDF}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindFetch, st.Error.Kind)
	assert.Equal(t, "Failed to extract text from the PDF.: corrupt xref", st.Error.Message)

	st, err = f.svc.FetchWebsite(ctx, "https://down.example")
	require.Error(t, err)
	assert.Equal(t, apperr.KindFetch, st.Error.Kind)
	assert.False(t, st.WebsiteFetched)
}

func TestServiceSuccessfulUploadClearsError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UploadImages(ctx, []session.Upload{{Name: "bad", Data: []byte("nope")}})
	require.Error(t, err)

	st, err := f.svc.UploadImages(ctx, []session.Upload{{Name: "ok.png", Data: pngBytes(t)}})
	require.NoError(t, err)
	assert.Nil(t, st.Error)
	assert.Equal(t, 1, st.ImageCount)
}

func TestServiceCopyRequiresAnswers(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Copy(0)
	assert.ErrorIs(t, err, session.ErrInvalidPhase)

	f.completer.On("Complete", mock.Anything, mock.Anything).Return(`{"qaPair":[{"index":0,"question":"Q","answer":"A"}]}`, nil).Once()
	_, _, err = f.svc.Submit(context.Background())
	require.NoError(t, err)
	waitDone(t, f.svc)

	_, err = f.svc.Copy(3)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInput, apperr.KindOf(err))

	f.clip.On("WriteAll", "A").Return(errors.New("no xclip")).Once()
	_, err = f.svc.Copy(0)
	require.Error(t, err)
	assert.Equal(t, "copy answer: no xclip", err.Error())
}

func TestServiceUploadsAfterSubmitRejected(t *testing.T) {
	f := newFixture(t)
	f.completer.On("Complete", mock.Anything, mock.Anything).Return(`{"qaPair":[{"index":0,"question":"Q","answer":"A"}]}`, nil).Once()
	_, _, err := f.svc.Submit(context.Background())
	require.NoError(t, err)
	waitDone(t, f.svc)

	st, err := f.svc.UploadImages(context.Background(), []session.Upload{{Name: "late.png", Data: pngBytes(t)}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInput, apperr.KindOf(err))
	assert.Equal(t, session.PhaseDone, st.Phase)

	_, started, err := f.svc.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, started)
	f.completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestServiceReturnedStateCarriesNewError(t *testing.T) {
	m := session.NewMachine(time.Microsecond)
	t.Cleanup(m.Close)
	docs := new(mocks.MockDocumentExtractor)
	docs.On("WebsiteText", mock.Anything, "https://down.example").Return("", errors.New("status 502")).Once()
	svc := session.NewService(session.Deps{Machine: m, Documents: docs})
	ctx := context.Background()

	st, err := svc.FetchWebsite(ctx, "")
	require.Error(t, err)
	require.NotNil(t, st.Error)
	assert.Equal(t, apperr.KindInput, st.Error.Kind)
	assert.Equal(t, "Please enter a valid URL.", st.Error.Message)

	st, err = svc.FetchWebsite(ctx, "https://down.example")
	require.Error(t, err)
	require.NotNil(t, st.Error)
	assert.Equal(t, apperr.KindFetch, st.Error.Kind)
	assert.Equal(t, apperr.Message(err), st.Error.Message)

	st, _, err = svc.Submit(ctx)
	require.Error(t, err)
	require.NotNil(t, st.Error)
	assert.Equal(t, apperr.KindConfig, st.Error.Kind)
	assert.Equal(t, apperr.Message(err), st.Error.Message)
	assert.Equal(t, m.State().Error, st.Error)
}
