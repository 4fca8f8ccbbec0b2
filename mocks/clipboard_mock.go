package mocks

import "github.com/stretchr/testify/mock"

type MockClipboard struct {
	mock.Mock
}

func (m *MockClipboard) WriteAll(text string) error {
	args := m.Called(text)

	return args.Error(0)
}
