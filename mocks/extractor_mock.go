package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockDocumentExtractor struct {
	mock.Mock
}

func (m *MockDocumentExtractor) PDFText(ctx context.Context, data []byte) (string, error) {
	args := m.Called(ctx, data)

	return args.String(0), args.Error(1)
}

func (m *MockDocumentExtractor) WebsiteText(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)

	return args.String(0), args.Error(1)
}
