package mocks

import (
	"github.com/StreamCatalog/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockStreamMapper struct {
	mock.Mock
}

func (m *MockStreamMapper) Map(raw domain.RawStreamRecord) (domain.Stream, error) {
	args := m.Called(raw)
	var s domain.Stream
	if args.Get(0) != nil {
		s = args.Get(0).(domain.Stream)
	}
	return s, args.Error(1)
}
