package melcloud

// LoginRequest is the body of ClientLogin. Field names follow the vendor's
// PascalCase wire format.
type LoginRequest struct {
	AppVersion      string  `json:"AppVersion"`
	CaptchaResponse *string `json:"CaptchaResponse"`
	Email           string  `json:"Email"`
	Password        string  `json:"Password"`
	Language        int     `json:"Language"`
	Persist         bool    `json:"Persist"`
}

type LoginResponse struct {
	ErrorID                *int       `json:"ErrorId"`
	Message                *string    `json:"ErrorMessage"`
	LoginStatus            int        `json:"LoginStatus"`
	UserID                 int        `json:"UserId"`
	RandomKey              *string    `json:"RandomKey"`
	AppVersionAnnouncement *string    `json:"AppVersionAnnouncement"`
	LoginData              *LoginData `json:"LoginData"`
}

type LoginData struct {
	ContextKey    string `json:"ContextKey"`
	Client        int    `json:"Client"`
	Name          string `json:"Name"`
	Language      int    `json:"Language"`
	CountryName   string `json:"CountryName"`
	Expiry        string `json:"Expiry"`
	UseFahrenheit bool   `json:"UseFahrenheit"`
}

// ListDevicesResponse is one building entry of User/ListDevices.
type ListDevicesResponse struct {
	ID        int       `json:"ID"`
	Name      string    `json:"Name"`
	Structure Structure `json:"Structure"`
}

type Structure struct {
	Devices []DeviceEntry `json:"Devices"`
}

type DeviceEntry struct {
	DeviceID     int     `json:"DeviceID"`
	DeviceName   *string `json:"DeviceName"`
	BuildingID   int     `json:"BuildingID"`
	BuildingName *string `json:"BuildingName"`
	Device       Device  `json:"Device"`
}

// Device is the full telemetry record carried by the device list.
type Device struct {
	DeviceID                int     `json:"DeviceID"`
	DeviceType              int     `json:"DeviceType"`
	Power                   bool    `json:"Power"`
	Offline                 bool    `json:"Offline"`
	RoomTemperature         float64 `json:"RoomTemperature"`
	SetTemperature          float64 `json:"SetTemperature"`
	ActualFanSpeed          int     `json:"ActualFanSpeed"`
	FanSpeed                int     `json:"FanSpeed"`
	AutomaticFanSpeed       *bool   `json:"AutomaticFanSpeed"`
	VaneVerticalDirection   int     `json:"VaneVerticalDirection"`
	VaneVerticalSwing       *bool   `json:"VaneVerticalSwing"`
	VaneHorizontalDirection int     `json:"VaneHorizontalDirection"`
	VaneHorizontalSwing     *bool   `json:"VaneHorizontalSwing"`
	OperationMode           int     `json:"OperationMode"`
	InStandbyMode           bool    `json:"InStandbyMode"`

	HeatingEnergyConsumedRate1 *float64 `json:"HeatingEnergyConsumedRate1"`
	HeatingEnergyConsumedRate2 *float64 `json:"HeatingEnergyConsumedRate2"`
	CoolingEnergyConsumedRate1 *float64 `json:"CoolingEnergyConsumedRate1"`
	CoolingEnergyConsumedRate2 *float64 `json:"CoolingEnergyConsumedRate2"`
	AutoEnergyConsumedRate1    *float64 `json:"AutoEnergyConsumedRate1"`
	AutoEnergyConsumedRate2    *float64 `json:"AutoEnergyConsumedRate2"`
	DryEnergyConsumedRate1     *float64 `json:"DryEnergyConsumedRate1"`
	DryEnergyConsumedRate2     *float64 `json:"DryEnergyConsumedRate2"`
	FanEnergyConsumedRate1     *float64 `json:"FanEnergyConsumedRate1"`
	FanEnergyConsumedRate2     *float64 `json:"FanEnergyConsumedRate2"`
	OtherEnergyConsumedRate1   *float64 `json:"OtherEnergyConsumedRate1"`
	OtherEnergyConsumedRate2   *float64 `json:"OtherEnergyConsumedRate2"`

	CurrentEnergyConsumed  *float64 `json:"CurrentEnergyConsumed"`
	CurrentEnergyMode      *int     `json:"CurrentEnergyMode"`
	EnergyCorrectionModel  *float64 `json:"EnergyCorrectionModel"`
	EnergyCorrectionActive *bool    `json:"EnergyCorrectionActive"`

	WifiSignalStrength *float64 `json:"WifiSignalStrength"`
	WifiAdapterStatus  *string  `json:"WifiAdapterStatus"`

	HasError *bool `json:"HasError"`

	// Local wall-clock time of the unit, no zone marker.
	LastTimeStamp string `json:"LastTimeStamp"`
}

// CurrentDataResponse is the lean single-device shape of Device/Get.
type CurrentDataResponse struct {
	DeviceID          int     `json:"DeviceID"`
	DeviceType        int     `json:"DeviceType"`
	Power             bool    `json:"Power"`
	Offline           bool    `json:"Offline"`
	RoomTemperature   float64 `json:"RoomTemperature"`
	SetTemperature    float64 `json:"SetTemperature"`
	SetFanSpeed       int     `json:"SetFanSpeed"`
	OperationMode     int     `json:"OperationMode"`
	VaneHorizontal    int     `json:"VaneHorizontal"`
	VaneVertical      int     `json:"VaneVertical"`
	InStandbyMode     bool    `json:"InStandbyMode"`
	HasPendingCommand bool    `json:"HasPendingCommand"`
	// UTC, unlike Device.LastTimeStamp.
	LastCommunication string `json:"LastCommunication"`
	NextCommunication string `json:"NextCommunication"`
}
