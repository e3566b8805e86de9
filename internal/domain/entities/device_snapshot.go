package entities

import (
	"fmt"
	"time"
)

// SnapshotSource identifies the upstream shape a snapshot was built from.
type SnapshotSource string

const (
	SourceDeviceList  SnapshotSource = "device_list"
	SourceCurrentData SnapshotSource = "current_data"
)

// DeviceIdentity is the (device, building) pair the logger polls.
type DeviceIdentity struct {
	DeviceID   int
	BuildingID int
}

// Complete reports whether both ids are known.
func (d DeviceIdentity) Complete() bool {
	return d.DeviceID != 0 && d.BuildingID != 0
}

// DeviceSnapshot is one normalized reading of an air-to-air unit. Nil pointers
// mean the upstream shape did not carry the value.
type DeviceSnapshot struct {
	Time              time.Time      `json:"time" bson:"time"`
	DeviceID          int            `json:"device_id" bson:"device_id"`
	DeviceType        int            `json:"device_type" bson:"device_type"`
	Source            SnapshotSource `json:"source" bson:"source"`
	LastCommunication string         `json:"last_communication" bson:"last_communication"`

	Power         bool `json:"power" bson:"power"`
	Offline       bool `json:"offline" bson:"offline"`
	InStandbyMode bool `json:"in_standby_mode" bson:"in_standby_mode"`

	RoomTemperature float64 `json:"room_temperature" bson:"room_temperature"`
	SetTemperature  float64 `json:"set_temperature" bson:"set_temperature"`

	ActualFanSpeed          int   `json:"actual_fan_speed" bson:"actual_fan_speed"`
	FanSpeed                int   `json:"fan_speed" bson:"fan_speed"`
	AutomaticFanSpeed       *bool `json:"automatic_fan_speed" bson:"automatic_fan_speed"`
	VaneVerticalDirection   int   `json:"vane_vertical_direction" bson:"vane_vertical_direction"`
	VaneVerticalSwing       *bool `json:"vane_vertical_swing" bson:"vane_vertical_swing"`
	VaneHorizontalDirection int   `json:"vane_horizontal_direction" bson:"vane_horizontal_direction"`
	VaneHorizontalSwing     *bool `json:"vane_horizontal_swing" bson:"vane_horizontal_swing"`
	OperationMode           int   `json:"operation_mode" bson:"operation_mode"`

	HeatingEnergyConsumedRate1 *float64 `json:"heating_energy_consumed_rate1" bson:"heating_energy_consumed_rate1"`
	HeatingEnergyConsumedRate2 *float64 `json:"heating_energy_consumed_rate2" bson:"heating_energy_consumed_rate2"`
	CoolingEnergyConsumedRate1 *float64 `json:"cooling_energy_consumed_rate1" bson:"cooling_energy_consumed_rate1"`
	CoolingEnergyConsumedRate2 *float64 `json:"cooling_energy_consumed_rate2" bson:"cooling_energy_consumed_rate2"`
	AutoEnergyConsumedRate1    *float64 `json:"auto_energy_consumed_rate1" bson:"auto_energy_consumed_rate1"`
	AutoEnergyConsumedRate2    *float64 `json:"auto_energy_consumed_rate2" bson:"auto_energy_consumed_rate2"`
	DryEnergyConsumedRate1     *float64 `json:"dry_energy_consumed_rate1" bson:"dry_energy_consumed_rate1"`
	DryEnergyConsumedRate2     *float64 `json:"dry_energy_consumed_rate2" bson:"dry_energy_consumed_rate2"`
	FanEnergyConsumedRate1     *float64 `json:"fan_energy_consumed_rate1" bson:"fan_energy_consumed_rate1"`
	FanEnergyConsumedRate2     *float64 `json:"fan_energy_consumed_rate2" bson:"fan_energy_consumed_rate2"`
	OtherEnergyConsumedRate1   *float64 `json:"other_energy_consumed_rate1" bson:"other_energy_consumed_rate1"`
	OtherEnergyConsumedRate2   *float64 `json:"other_energy_consumed_rate2" bson:"other_energy_consumed_rate2"`

	CurrentEnergyConsumed  *float64 `json:"current_energy_consumed" bson:"current_energy_consumed"`
	CurrentEnergyMode      *int     `json:"current_energy_mode" bson:"current_energy_mode"`
	EnergyCorrectionModel  *float64 `json:"energy_correction_model" bson:"energy_correction_model"`
	EnergyCorrectionActive *bool    `json:"energy_correction_active" bson:"energy_correction_active"`

	WifiSignalStrength *float64 `json:"wifi_signal_strength" bson:"wifi_signal_strength"`
	WifiAdapterStatus  *string  `json:"wifi_adapter_status" bson:"wifi_adapter_status"`
	HasError           *bool    `json:"has_error" bson:"has_error"`
}

// Key is the storage identity of a snapshot: device id plus UTC instant.
func (s DeviceSnapshot) Key() string {
	return fmt.Sprintf("%d_%s", s.DeviceID, s.Time.UTC().Format(time.RFC3339Nano))
}
