package gateways

import (
	"context"

	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/melcloud"
)

// MelCloudAPI is the vendor surface the poller depends on. Authenticated
// calls return melcloud.ErrUnauthorized when the token is rejected and any
// other error for everything else.
type MelCloudAPI interface {
	Login(ctx context.Context, email, password string) (*melcloud.LoginResponse, error)
	ListDevices(ctx context.Context, token string) ([]melcloud.ListDevicesResponse, error)
	GetCurrentData(ctx context.Context, token string, deviceID, buildingID int) (*melcloud.CurrentDataResponse, error)
	RequestRefresh(ctx context.Context, token string, deviceID int) (bool, error)
}
