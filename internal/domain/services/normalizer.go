package services

import (
	"time"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/melcloud"
)

const (
	// The device list reports the unit's wall clock without a zone and without
	// fractional seconds.
	deviceListTimeLayout = "2006-01-02T15:04:05"
	// Device/Get reports UTC and always carries fractional seconds.
	currentDataTimeLayout = "2006-01-02T15:04:05.999999999"
)

// hasFraction reports whether s has at least one fractional-second digit
// right after the seconds. time.Parse accepts a fraction whether or not the
// layout asks for one, so both shapes check it here.
func hasFraction(s string) bool {
	n := len(deviceListTimeLayout)
	return len(s) > n+1 && s[n] == '.' && s[n+1] >= '0' && s[n+1] <= '9'
}

// Source is one upstream record that can become a snapshot. It is either a
// DeviceListSource or a CurrentDataSource.
type Source interface {
	source() entities.SnapshotSource
}

// DeviceListSource wraps the full record from User/ListDevices.
type DeviceListSource struct {
	Device melcloud.Device
}

func (DeviceListSource) source() entities.SnapshotSource { return entities.SourceDeviceList }

// CurrentDataSource wraps the lean record from Device/Get.
type CurrentDataSource struct {
	Data melcloud.CurrentDataResponse
}

func (CurrentDataSource) source() entities.SnapshotSource { return entities.SourceCurrentData }

// Normalize builds a snapshot from src. The device-list timestamp is read as
// wall-clock time in loc; the current-data timestamp is already UTC. The
// second return value is false when the timestamp does not parse, in which
// case nothing must be persisted.
func Normalize(src Source, loc *time.Location) (entities.DeviceSnapshot, bool) {
	switch s := src.(type) {
	case DeviceListSource:
		return fromDeviceList(s.Device, loc)
	case *DeviceListSource:
		return fromDeviceList(s.Device, loc)
	case CurrentDataSource:
		return fromCurrentData(s.Data)
	case *CurrentDataSource:
		return fromCurrentData(s.Data)
	default:
		return entities.DeviceSnapshot{}, false
	}
}

func fromDeviceList(d melcloud.Device, loc *time.Location) (entities.DeviceSnapshot, bool) {
	if loc == nil {
		loc = time.UTC
	}
	if hasFraction(d.LastTimeStamp) {
		return entities.DeviceSnapshot{}, false
	}
	local, err := time.ParseInLocation(deviceListTimeLayout, d.LastTimeStamp, loc)
	if err != nil {
		return entities.DeviceSnapshot{}, false
	}

	return entities.DeviceSnapshot{
		Time:              local.UTC(),
		DeviceID:          d.DeviceID,
		DeviceType:        d.DeviceType,
		Source:            entities.SourceDeviceList,
		LastCommunication: d.LastTimeStamp,

		Power:         d.Power,
		Offline:       d.Offline,
		InStandbyMode: d.InStandbyMode,

		RoomTemperature: d.RoomTemperature,
		SetTemperature:  d.SetTemperature,

		ActualFanSpeed:          d.ActualFanSpeed,
		FanSpeed:                d.FanSpeed,
		AutomaticFanSpeed:       d.AutomaticFanSpeed,
		VaneVerticalDirection:   d.VaneVerticalDirection,
		VaneVerticalSwing:       d.VaneVerticalSwing,
		VaneHorizontalDirection: d.VaneHorizontalDirection,
		VaneHorizontalSwing:     d.VaneHorizontalSwing,
		OperationMode:           d.OperationMode,

		HeatingEnergyConsumedRate1: d.HeatingEnergyConsumedRate1,
		HeatingEnergyConsumedRate2: d.HeatingEnergyConsumedRate2,
		CoolingEnergyConsumedRate1: d.CoolingEnergyConsumedRate1,
		CoolingEnergyConsumedRate2: d.CoolingEnergyConsumedRate2,
		AutoEnergyConsumedRate1:    d.AutoEnergyConsumedRate1,
		AutoEnergyConsumedRate2:    d.AutoEnergyConsumedRate2,
		DryEnergyConsumedRate1:     d.DryEnergyConsumedRate1,
		DryEnergyConsumedRate2:     d.DryEnergyConsumedRate2,
		FanEnergyConsumedRate1:     d.FanEnergyConsumedRate1,
		FanEnergyConsumedRate2:     d.FanEnergyConsumedRate2,
		OtherEnergyConsumedRate1:   d.OtherEnergyConsumedRate1,
		OtherEnergyConsumedRate2:   d.OtherEnergyConsumedRate2,

		CurrentEnergyConsumed:  d.CurrentEnergyConsumed,
		CurrentEnergyMode:      d.CurrentEnergyMode,
		EnergyCorrectionModel:  d.EnergyCorrectionModel,
		EnergyCorrectionActive: d.EnergyCorrectionActive,

		WifiSignalStrength: d.WifiSignalStrength,
		WifiAdapterStatus:  d.WifiAdapterStatus,
		HasError:           d.HasError,
	}, true
}

// The lean shape has a single fan speed, used for both actual and set speed.
// Everything it does not carry stays nil.
func fromCurrentData(d melcloud.CurrentDataResponse) (entities.DeviceSnapshot, bool) {
	if !hasFraction(d.LastCommunication) {
		return entities.DeviceSnapshot{}, false
	}
	t, err := time.ParseInLocation(currentDataTimeLayout, d.LastCommunication, time.UTC)
	if err != nil {
		return entities.DeviceSnapshot{}, false
	}

	return entities.DeviceSnapshot{
		Time:              t.UTC(),
		DeviceID:          d.DeviceID,
		DeviceType:        d.DeviceType,
		Source:            entities.SourceCurrentData,
		LastCommunication: d.LastCommunication,

		Power:         d.Power,
		Offline:       d.Offline,
		InStandbyMode: d.InStandbyMode,

		RoomTemperature: d.RoomTemperature,
		SetTemperature:  d.SetTemperature,

		ActualFanSpeed:          d.SetFanSpeed,
		FanSpeed:                d.SetFanSpeed,
		VaneVerticalDirection:   d.VaneVertical,
		VaneHorizontalDirection: d.VaneHorizontal,
		OperationMode:           d.OperationMode,
	}, true
}
