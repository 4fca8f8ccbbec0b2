package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"jobhelper/internal/llm"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req llm.PromptRequest) (string, error) {
	args := m.Called(ctx, req)

	return args.String(0), args.Error(1)
}

func (m *MockCompleter) Name() string {
	return "OpenAI"
}
