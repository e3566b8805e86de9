package mocks

import (
	"context"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
	"github.com/stretchr/testify/mock"
)

type SnapshotSinkMock struct {
	mock.Mock
	SinkName string
}

func (s *SnapshotSinkMock) Name() string {
	return s.SinkName
}

func (s *SnapshotSinkMock) Enabled() bool {
	args := s.Called()
	return args.Bool(0)
}

func (s *SnapshotSinkMock) Upsert(ctx context.Context, snapshot entities.DeviceSnapshot) error {
	args := s.Called(ctx, snapshot)
	return args.Error(0)
}
