// ABOUTME: Data-category tags and the category-to-mode lookup on a Record
// ABOUTME: Tags travel with every access event for audit and notification

package settings

// Category identifies one sensitive data type. The string values are the
// wire tags carried in access events and must stay stable.
type Category string

const (
	DataDeviceID            Category = "deviceID"
	DataLine1Number         Category = "line1Number"
	DataLocationGPS         Category = "locationGPS"
	DataLocationNetwork     Category = "locationNetwork"
	DataNetworkInfoCurrent  Category = "networkInfoCurrent"
	DataNetworkInfoSIM      Category = "networkInfoSIM"
	DataSimSerial           Category = "simSerial"
	DataSubscriberID        Category = "subscriberID"
	DataAccountsList        Category = "accountsList"
	DataAuthTokens          Category = "authTokens"
	DataOutgoingCall        Category = "outgoingCall"
	DataIncomingCall        Category = "incomingCall"
	DataContacts            Category = "contacts"
	DataCalendar            Category = "calendar"
	DataMMS                 Category = "mms"
	DataSMS                 Category = "sms"
	DataMMSSMS              Category = "mmsSms"
	DataCallLog             Category = "callLog"
	DataBookmarks           Category = "bookmarks"
	DataSystemLogs          Category = "systemLogs"
	DataIntentBootCompleted Category = "intentBootCompleted"
	DataCamera              Category = "camera"
	DataRecordAudio         Category = "recordAudio"
	DataSMSSend             Category = "SmsSend"
	DataPhoneCall           Category = "phoneCall"
	DataAndroidID           Category = "android_id"
	DataICCAccess           Category = "iccAccess"
	DataWifiInfo            Category = "wifiInfo"
	DataIPTables            Category = "iptables"
	DataSwitchConnectivity  Category = "switchconnectivity"
	DataSendMMS             Category = "sendMms"
	DataForceOnlineState    Category = "forceOnlineState"
	DataSwitchWifiState     Category = "switchWifiState"
	DataAddOnManagement     Category = "addOnManagement"
)

// Categories lists every known category in a stable order.
var Categories = []Category{
	DataDeviceID, DataLine1Number, DataLocationGPS, DataLocationNetwork,
	DataNetworkInfoCurrent, DataNetworkInfoSIM, DataSimSerial,
	DataSubscriberID, DataAccountsList, DataAuthTokens, DataOutgoingCall,
	DataIncomingCall, DataContacts, DataCalendar, DataMMS, DataSMS,
	DataMMSSMS, DataCallLog, DataBookmarks, DataSystemLogs,
	DataIntentBootCompleted, DataCamera, DataRecordAudio, DataSMSSend,
	DataPhoneCall, DataAndroidID, DataICCAccess, DataWifiInfo, DataIPTables,
	DataSwitchConnectivity, DataSendMMS, DataForceOnlineState,
	DataSwitchWifiState, DataAddOnManagement,
}

// ModeFor returns the stored mode for the given category. The second return
// is false for unknown categories.
func (r *Record) ModeFor(c Category) (Mode, bool) {
	switch c {
	case DataDeviceID:
		return r.DeviceIDMode, true
	case DataLine1Number:
		return r.Line1NumberMode, true
	case DataLocationGPS:
		return r.LocationGPSMode, true
	case DataLocationNetwork:
		return r.LocationNetworkMode, true
	case DataNetworkInfoCurrent:
		return r.NetworkInfoMode, true
	case DataNetworkInfoSIM:
		return r.SimInfoMode, true
	case DataSimSerial:
		return r.SimSerialMode, true
	case DataSubscriberID:
		return r.SubscriberIDMode, true
	case DataAccountsList:
		return r.AccountsMode, true
	case DataAuthTokens:
		return r.AccountsAuthTokensMode, true
	case DataOutgoingCall:
		return r.OutgoingCallsMode, true
	case DataIncomingCall:
		return r.IncomingCallsMode, true
	case DataContacts:
		return r.ContactsMode, true
	case DataCalendar:
		return r.CalendarMode, true
	case DataMMS:
		return r.MMSMode, true
	case DataSMS:
		return r.SMSMode, true
	case DataMMSSMS:
		// combined MMS/SMS access: restrictive union of the two modes
		if r.MMSMode != ModeReal {
			return r.MMSMode, true
		}
		return r.SMSMode, true
	case DataCallLog:
		return r.CallLogMode, true
	case DataBookmarks:
		return r.BookmarksMode, true
	case DataSystemLogs:
		return r.SystemLogsMode, true
	case DataIntentBootCompleted:
		return r.IntentBootCompletedMode, true
	case DataCamera:
		return r.CameraMode, true
	case DataRecordAudio:
		return r.RecordAudioMode, true
	case DataSMSSend:
		return r.SMSSendMode, true
	case DataPhoneCall:
		return r.PhoneCallMode, true
	case DataAndroidID:
		return r.AndroidIDMode, true
	case DataICCAccess:
		return r.ICCAccessMode, true
	case DataWifiInfo:
		return r.WifiInfoMode, true
	case DataIPTables:
		return r.IPTableProtectMode, true
	case DataSwitchConnectivity:
		return r.SwitchConnectivityMode, true
	case DataSendMMS:
		return r.SendMMSMode, true
	case DataForceOnlineState:
		return r.ForceOnlineStateMode, true
	case DataSwitchWifiState:
		return r.SwitchWifiStateMode, true
	case DataAddOnManagement:
		return r.AddOnManagementMode, true
	default:
		return ModeReal, false
	}
}

// EffectiveValue returns the substitute output for valued categories,
// computed under the category's mode. Mode-only categories (camera,
// contacts, broadcasts, ...) have no scalar output and return "".
func (r *Record) EffectiveValue(c Category) string {
	switch c {
	case DataDeviceID:
		return r.EffectiveDeviceID()
	case DataLine1Number:
		return r.EffectiveLine1Number()
	case DataLocationGPS:
		lat := r.EffectiveLocationGPSLat()
		lon := r.EffectiveLocationGPSLon()
		if lat == "" && lon == "" {
			return ""
		}
		return lat + "," + lon
	case DataLocationNetwork:
		lat := r.EffectiveLocationNetworkLat()
		lon := r.EffectiveLocationNetworkLon()
		if lat == "" && lon == "" {
			return ""
		}
		return lat + "," + lon
	case DataSimSerial:
		return r.EffectiveSimSerial()
	case DataSubscriberID:
		return r.EffectiveSubscriberID()
	case DataAndroidID:
		return r.EffectiveAndroidID()
	default:
		return ""
	}
}
