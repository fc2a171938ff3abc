// ABOUTME: Record value type holding per-category privacy modes for one package
// ABOUTME: Effective-value accessors compute EMPTY/RANDOM substitutes on the fly

package settings

// Mode governs what an effective-value read returns for a data category.
type Mode byte

const (
	// ModeReal passes the platform's real value through unchanged.
	ModeReal Mode = 0
	// ModeEmpty substitutes the zero representation of the field's type.
	ModeEmpty Mode = 1
	// ModeCustom substitutes the caller-configured value for the category.
	ModeCustom Mode = 2
	// ModeRandom generates a fresh synthetic value on every read.
	ModeRandom Mode = 3
)

// Valid reports whether m is one of the four defined modes.
func (m Mode) Valid() bool { return m <= ModeRandom }

func (m Mode) String() string {
	switch m {
	case ModeReal:
		return "real"
	case ModeEmpty:
		return "empty"
	case ModeCustom:
		return "custom"
	case ModeRandom:
		return "random"
	default:
		return "invalid"
	}
}

// Notification setting values for a package's audit events.
const (
	NotifyOff byte = 0
	NotifyOn  byte = 1
)

// UnknownUID is the sentinel used when a package's UID cannot be resolved
// (one UID can map to multiple packages).
const UnknownUID = -1

// Record holds the privacy settings for a single application package.
// A Record is a value type: construct it, save it, read it back. Identity is
// the package name, not the struct pointer. ID is assigned by the store and
// nil until the record has been persisted.
type Record struct {
	ID          *int64 `json:"id,omitempty"`
	PackageName string `json:"package_name"`
	UID         int    `json:"uid"`

	DeviceIDMode Mode   `json:"device_id_mode"`
	DeviceID     string `json:"device_id,omitempty"`

	Line1NumberMode Mode   `json:"line1_number_mode"`
	Line1Number     string `json:"line1_number,omitempty"`

	LocationGPSMode Mode   `json:"location_gps_mode"`
	LocationGPSLat  string `json:"location_gps_lat,omitempty"`
	LocationGPSLon  string `json:"location_gps_lon,omitempty"`

	LocationNetworkMode Mode   `json:"location_network_mode"`
	LocationNetworkLat  string `json:"location_network_lat,omitempty"`
	LocationNetworkLon  string `json:"location_network_lon,omitempty"`

	NetworkInfoMode Mode `json:"network_info_mode"`
	SimInfoMode     Mode `json:"sim_info_mode"`

	SimSerialMode Mode   `json:"sim_serial_mode"`
	SimSerial     string `json:"sim_serial,omitempty"`

	SubscriberIDMode Mode   `json:"subscriber_id_mode"`
	SubscriberID     string `json:"subscriber_id,omitempty"`

	AccountsMode           Mode `json:"accounts_mode"`
	AccountsAuthTokensMode Mode `json:"accounts_auth_tokens_mode"`
	OutgoingCallsMode      Mode `json:"outgoing_calls_mode"`
	IncomingCallsMode      Mode `json:"incoming_calls_mode"`

	ContactsMode  Mode `json:"contacts_mode"`
	CalendarMode  Mode `json:"calendar_mode"`
	MMSMode       Mode `json:"mms_mode"`
	SMSMode       Mode `json:"sms_mode"`
	CallLogMode   Mode `json:"call_log_mode"`
	BookmarksMode Mode `json:"bookmarks_mode"`

	SystemLogsMode Mode `json:"system_logs_mode"`

	// NotificationMode controls whether access events for this package are
	// broadcast to observers (NotifyOn/NotifyOff), independent of modes.
	NotificationMode byte `json:"notification_mode"`

	IntentBootCompletedMode Mode `json:"intent_boot_completed_mode"`
	CameraMode              Mode `json:"camera_mode"`
	RecordAudioMode         Mode `json:"record_audio_mode"`
	SMSSendMode             Mode `json:"sms_send_mode"`
	PhoneCallMode           Mode `json:"phone_call_mode"`

	IPTableProtectMode  Mode `json:"ip_table_protect_mode"`
	ICCAccessMode       Mode `json:"icc_access_mode"`
	AddOnManagementMode Mode `json:"add_on_management_mode"`

	AndroidIDMode Mode   `json:"android_id_mode"`
	AndroidID     string `json:"android_id,omitempty"`

	WifiInfoMode           Mode `json:"wifi_info_mode"`
	SwitchConnectivityMode Mode `json:"switch_connectivity_mode"`
	SendMMSMode            Mode `json:"send_mms_mode"`
	ForceOnlineStateMode   Mode `json:"force_online_state_mode"`
	SwitchWifiStateMode    Mode `json:"switch_wifi_state_mode"`

	// AllowedContacts restricts contact queries to this allow-list. Only
	// meaningful when ContactsMode is ModeCustom; ignored otherwise.
	AllowedContacts []int64 `json:"allowed_contacts,omitempty"`
}

// Key returns the record's identity. Two records are the same record iff
// their keys are equal, regardless of other field contents.
func (r *Record) Key() string { return r.PackageName }

// EffectiveDeviceID returns the device identifier a caller should see.
func (r *Record) EffectiveDeviceID() string {
	switch r.DeviceIDMode {
	case ModeEmpty:
		return ""
	case ModeRandom:
		return randomDeviceID()
	default:
		return r.DeviceID
	}
}

// EffectiveLine1Number returns the phone number a caller should see.
func (r *Record) EffectiveLine1Number() string {
	switch r.Line1NumberMode {
	case ModeEmpty:
		return ""
	case ModeRandom:
		return randomLine1Number()
	default:
		return r.Line1Number
	}
}

func (r *Record) EffectiveLocationGPSLat() string {
	switch r.LocationGPSMode {
	case ModeEmpty:
		return ""
	case ModeRandom:
		return randomLatitude()
	default:
		return r.LocationGPSLat
	}
}

func (r *Record) EffectiveLocationGPSLon() string {
	switch r.LocationGPSMode {
	case ModeEmpty:
		return ""
	case ModeRandom:
		return randomLongitude()
	default:
		return r.LocationGPSLon
	}
}

func (r *Record) EffectiveLocationNetworkLat() string {
	switch r.LocationNetworkMode {
	case ModeEmpty:
		return ""
	case ModeRandom:
		return randomLatitude()
	default:
		return r.LocationNetworkLat
	}
}

func (r *Record) EffectiveLocationNetworkLon() string {
	switch r.LocationNetworkMode {
	case ModeEmpty:
		return ""
	case ModeRandom:
		return randomLongitude()
	default:
		return r.LocationNetworkLon
	}
}

// EffectiveSimSerial returns the SIM serial number a caller should see.
// The RANDOM form is an unbounded digit string.
func (r *Record) EffectiveSimSerial() string {
	switch r.SimSerialMode {
	case ModeEmpty:
		return ""
	case ModeRandom:
		return randomSimSerial()
	default:
		return r.SimSerial
	}
}

func (r *Record) EffectiveSubscriberID() string {
	switch r.SubscriberIDMode {
	case ModeEmpty:
		return ""
	case ModeRandom:
		return randomSubscriberID()
	default:
		return r.SubscriberID
	}
}

// EffectiveAndroidID returns the android ID a caller should see. EMPTY maps
// to a fixed placeholder rather than "": consumers fail to boot on a truly
// empty android ID.
func (r *Record) EffectiveAndroidID() string {
	switch r.AndroidIDMode {
	case ModeEmpty:
		return EmptyAndroidID
	case ModeRandom:
		return randomAndroidID()
	default:
		return r.AndroidID
	}
}
