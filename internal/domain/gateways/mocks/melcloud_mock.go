package mocks

import (
	"context"

	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/melcloud"
	"github.com/stretchr/testify/mock"
)

type MelCloudAPIMock struct {
	mock.Mock
}

func (m *MelCloudAPIMock) Login(ctx context.Context, email, password string) (*melcloud.LoginResponse, error) {
	args := m.Called(ctx, email, password)
	resp, _ := args.Get(0).(*melcloud.LoginResponse)
	return resp, args.Error(1)
}

func (m *MelCloudAPIMock) ListDevices(ctx context.Context, token string) ([]melcloud.ListDevicesResponse, error) {
	args := m.Called(ctx, token)
	data, _ := args.Get(0).([]melcloud.ListDevicesResponse)
	return data, args.Error(1)
}

func (m *MelCloudAPIMock) GetCurrentData(ctx context.Context, token string, deviceID, buildingID int) (*melcloud.CurrentDataResponse, error) {
	args := m.Called(ctx, token, deviceID, buildingID)
	data, _ := args.Get(0).(*melcloud.CurrentDataResponse)
	return data, args.Error(1)
}

func (m *MelCloudAPIMock) RequestRefresh(ctx context.Context, token string, deviceID int) (bool, error) {
	args := m.Called(ctx, token, deviceID)
	return args.Bool(0), args.Error(1)
}
