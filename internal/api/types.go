package api

// LoginRequest is the payload for POST /login.
type LoginRequest struct {
	Login     string `json:"login"`
	Password  string `json:"password"`
	TwoFACode string `json:"two_fa_code,omitempty"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// permissionRequest is the payload for POST /rbac/permissions.
type permissionRequest struct {
	Action string `json:"action"`
	Object string `json:"object"`
	UserID string `json:"user_id"`
}

type permissionResponse struct {
	Allowed bool `json:"allowed"`
}

// DeviceStatus is the heartbeat status for one device.
// LastPing is unix seconds, 0 when the device has never pinged.
type DeviceStatus struct {
	Online   bool  `json:"online"`
	LastPing int64 `json:"last_ping"`
}

// TraderDeviceStatus is one element of the aggregate status response.
type TraderDeviceStatus struct {
	DeviceID string `json:"device_id"`
	Online   bool   `json:"online"`
	LastPing int64  `json:"last_ping"`
}

type traderDevicesResponse struct {
	Devices []TraderDeviceStatus `json:"devices"`
}
