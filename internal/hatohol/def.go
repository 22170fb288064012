// internal/hatohol/def.go
package hatohol

import "fmt"

const (
	// APIVersion is the only reply apiVersion this client accepts.
	APIVersion = 3

	// SessionHeader carries the session id on every authenticated request.
	SessionHeader = "X-Hatohol-Session"

	// SessionIDLen is the length of a session id issued by the backend.
	SessionIDLen = 36
)

// ErrorCode is the errorCode field of a reply envelope.
type ErrorCode int

const (
	CodeOK                              ErrorCode = 0
	CodeUninitialized                   ErrorCode = 1
	CodeUnknownReason                   ErrorCode = 2
	CodeNotImplemented                  ErrorCode = 3
	CodeGotException                    ErrorCode = 4
	CodeInternalError                   ErrorCode = 5
	CodeInvalidUser                     ErrorCode = 6
	CodeInvalidURL                      ErrorCode = 7
	CodeBadRestResponse                 ErrorCode = 8
	CodeFailedToParseJSONData           ErrorCode = 9
	CodeNotFoundTargetRecord            ErrorCode = 10
	CodeInvalidMonitoringSystemType     ErrorCode = 11
	CodeInvalidPortNumber               ErrorCode = 12
	CodeInvalidIPAddress                ErrorCode = 13
	CodeInvalidHostName                 ErrorCode = 14
	CodeNoIPAddressAndHostName          ErrorCode = 19
	CodeInvalidIncidentTrackerType      ErrorCode = 20
	CodeNoIncidentTrackerLocation       ErrorCode = 21
	CodeEmptyUserName                   ErrorCode = 22
	CodeTooLongUserName                 ErrorCode = 23
	CodeInvalidChar                     ErrorCode = 24
	CodeEmptyPassword                   ErrorCode = 25
	CodeTooLongPassword                 ErrorCode = 26
	CodeUserNameExist                   ErrorCode = 27
	CodeNoPrivilege                     ErrorCode = 28
	CodeInvalidPrivilegeFlags           ErrorCode = 29
	CodeEmptyUserRoleName               ErrorCode = 30
	CodeTooLongUserRoleName             ErrorCode = 31
	CodeUserRoleNameOrPrivilegeExist    ErrorCode = 32
	CodeOffsetWithoutLimit              ErrorCode = 33
	CodeNotFoundSortOrder               ErrorCode = 34
	CodeDeleteIncomplete                ErrorCode = 35
	CodeUnsupportedFormat               ErrorCode = 38
	CodeNotFoundSessionID               ErrorCode = 39
	CodeNotFoundIDInURL                 ErrorCode = 40
	CodeNotFoundParameter               ErrorCode = 41
	CodeInvalidParameter                ErrorCode = 42
	CodeAuthFailed                      ErrorCode = 43
	CodeNotTestMode                     ErrorCode = 44
	CodeFailedToCreateDataStore         ErrorCode = 45
	CodeFailedToRegistDataStore         ErrorCode = 46
	CodeFailedToStopDataStore           ErrorCode = 47
	CodeFailedToSendIncident            ErrorCode = 48
	CodeFailedConnectZabbix             ErrorCode = 49
	CodeFailedConnectMySQL              ErrorCode = 50
	CodeFailedConnectBroker             ErrorCode = 51
	CodeFailedConnectHAP                ErrorCode = 52
	CodeHAPInternalError                ErrorCode = 53
	CodeErrorTest                       ErrorCode = 54
	CodeErrorTestWithoutMessage         ErrorCode = 55

	// CodeSessionExpired is what the backend reports for an unknown or
	// expired session id.
	CodeSessionExpired = CodeNotFoundSessionID
)

var errorMessages = map[ErrorCode]string{
	CodeOK:                           "OK.",
	CodeUninitialized:                "Uninitialized (This is probably a bug).",
	CodeUnknownReason:                "Unknown reason.",
	CodeNotImplemented:               "Not implemented.",
	CodeGotException:                 "Got exception.",
	CodeInternalError:                "Internal error happened.",
	CodeInvalidUser:                  "Invalid user.",
	CodeInvalidURL:                   "Invalid URL.",
	CodeBadRestResponse:              "Invalid URL.",
	CodeFailedToParseJSONData:        "Failed to parse JSON data.",
	CodeNotFoundTargetRecord:         "Not found target record.",
	CodeInvalidMonitoringSystemType:  "Invalid monitoring system type.",
	CodeInvalidPortNumber:            "Invalid port number.",
	CodeInvalidIPAddress:             "Invalid IP address.",
	CodeInvalidHostName:              "Invalid host name.",
	CodeNoIPAddressAndHostName:       "No IP address and host name.",
	CodeInvalidIncidentTrackerType:   "Invalid incident tracker type.",
	CodeNoIncidentTrackerLocation:    "No incident tracker location.",
	CodeEmptyUserName:                "Empty user name.",
	CodeTooLongUserName:              "Too long user name.",
	CodeInvalidChar:                  "Invalid character.",
	CodeEmptyPassword:                "Password is empty.",
	CodeTooLongPassword:              "Too long password.",
	CodeUserNameExist:                "The same user name already exists.",
	CodeNoPrivilege:                  "No privilege.",
	CodeInvalidPrivilegeFlags:        "Invalid privilege flags.",
	CodeEmptyUserRoleName:            "Empty user role name.",
	CodeTooLongUserRoleName:          "Too long user role name.",
	CodeUserRoleNameOrPrivilegeExist: "The same user role name or a user role with the same privilege already exists.",
	CodeOffsetWithoutLimit:           "An offset value is specified but no limit value is specified.",
	CodeNotFoundSortOrder:            "Not found sort order.",
	CodeDeleteIncomplete:             "The delete operation was incomplete.",
	CodeUnsupportedFormat:            "Unsupported format.",
	CodeNotFoundSessionID:            "Not found session ID.",
	CodeNotFoundIDInURL:              "Not found ID in the URL.",
	CodeNotFoundParameter:            "Not found parameter.",
	CodeInvalidParameter:             "Invalid parameter.",
	CodeAuthFailed:                   "Authentication failed.",
	CodeNotTestMode:                  "Not test mode.",
	CodeFailedToCreateDataStore:      "Failed to create a DataStore object.",
	CodeFailedToRegistDataStore:      "Failed to regist a DataStore object.",
	CodeFailedToStopDataStore:        "Failed to stop a DataStore object.",
	CodeFailedToSendIncident:         "Failed to send an incident to an incident tracker.",
	CodeFailedConnectZabbix:          "Failed in connecting to Zabbix.",
	CodeFailedConnectMySQL:           "Failed in connecting to MySQL.",
	CodeFailedConnectBroker:          "Failed in connecting to Broker.",
	CodeFailedConnectHAP:             "Failed in connecting to ArmPlugin.",
	CodeHAPInternalError:             "Internal error happened in ArmPlugin.",
	CodeErrorTest:                    "Error test.",
}

func (c ErrorCode) String() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown error: %d", int(c))
}

// TriggerStatus is the status of a trigger.
type TriggerStatus int

const (
	TriggerStatusOK      TriggerStatus = 0
	TriggerStatusProblem TriggerStatus = 1
	TriggerStatusUnknown TriggerStatus = 2
)

var triggerStatusLabels = []string{"OK", "Problem", "Unknown"}

func (s TriggerStatus) Label() string {
	if s >= 0 && int(s) < len(triggerStatusLabels) {
		return triggerStatusLabels[s]
	}
	return fmt.Sprintf("INVALID: %d", int(s))
}

// EventType is the type of an event. Its values line up with TriggerStatus.
type EventType int

const (
	EventTypeGood    EventType = 0
	EventTypeBad     EventType = 1
	EventTypeUnknown EventType = 2
)

func (t EventType) Label() string {
	return TriggerStatus(t).Label()
}

// Severity is the severity of a trigger or event.
type Severity int

const (
	SeverityUnknown   Severity = 0
	SeverityInfo      Severity = 1
	SeverityWarning   Severity = 2
	SeverityError     Severity = 3
	SeverityCritical  Severity = 4
	SeverityEmergency Severity = 5
)

var severityLabels = []string{
	"Not classified", "Information", "Warning", "Average", "High", "Disaster",
}

func (s Severity) Label() string {
	if s >= 0 && int(s) < len(severityLabels) {
		return severityLabels[s]
	}
	return fmt.Sprintf("INVALID: %d", int(s))
}

// NumSeverities is the number of defined severities.
const NumSeverities = 6

// MonitoringSystemType identifies the kind of monitoring server.
type MonitoringSystemType int

const (
	MonitoringSystemZabbix MonitoringSystemType = 0
	MonitoringSystemNagios MonitoringSystemType = 1
)

func (t MonitoringSystemType) Label() string {
	switch t {
	case MonitoringSystemZabbix:
		return "ZABBIX"
	case MonitoringSystemNagios:
		return "NAGIOS"
	default:
		return fmt.Sprintf("INVALID: %d", int(t))
	}
}

// Sort orders understood by the sortOrder query parameter.
const (
	SortDontCare   = 0
	SortAscending  = 1
	SortDescending = 2
)
