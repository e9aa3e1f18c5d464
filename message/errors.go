package message

import "fmt"

// ErrorKind is the device's numeric error taxonomy. It implements error so a
// rejected command can be matched with errors.Is(err, message.ErrInvalidID).
type ErrorKind int

const (
	ErrUnknown ErrorKind = 0

	ErrUnrecognizedCommand       ErrorKind = 1
	ErrInvalidID                 ErrorKind = 2
	ErrWrongArgumentCount        ErrorKind = 3
	ErrDataUnavailable           ErrorKind = 4
	ErrResourceBusy              ErrorKind = 5
	ErrInvalidCredentials        ErrorKind = 6
	ErrCommandNotExecuted        ErrorKind = 7
	ErrNotLoggedIn               ErrorKind = 8
	ErrParameterOutOfRange       ErrorKind = 9
	ErrUserNotFound              ErrorKind = 10
	ErrInternal                  ErrorKind = 11
	ErrSystem                    ErrorKind = 12
	ErrProcessingPreviousCommand ErrorKind = 13
	ErrMediaUnplayable           ErrorKind = 14
	ErrOptionUnsupported         ErrorKind = 15
)

var errorKindText = map[ErrorKind]string{
	ErrUnknown:                   "unknown error",
	ErrUnrecognizedCommand:       "unrecognized command",
	ErrInvalidID:                 "invalid id",
	ErrWrongArgumentCount:        "wrong number of command arguments",
	ErrDataUnavailable:           "requested data not available",
	ErrResourceBusy:              "resource currently not available",
	ErrInvalidCredentials:        "invalid credentials",
	ErrCommandNotExecuted:        "command could not be executed",
	ErrNotLoggedIn:               "user not logged in",
	ErrParameterOutOfRange:       "parameter out of range",
	ErrUserNotFound:              "user not found",
	ErrInternal:                  "internal error",
	ErrSystem:                    "system error",
	ErrProcessingPreviousCommand: "processing previous command",
	ErrMediaUnplayable:           "media can't be played",
	ErrOptionUnsupported:         "option not supported",
}

// FromCode maps a wire error id to its kind. Unmapped ids return ErrUnknown.
func FromCode(n int) ErrorKind {
	k := ErrorKind(n)
	if k == ErrUnknown {
		return ErrUnknown
	}
	if _, ok := errorKindText[k]; ok {
		return k
	}
	return ErrUnknown
}

// Code returns the wire error id, 0 for ErrUnknown.
func (k ErrorKind) Code() int { return int(k) }

func (k ErrorKind) Error() string {
	if text, ok := errorKindText[k]; ok {
		return "heos: " + text
	}
	return fmt.Sprintf("heos: error kind %d", int(k))
}

func (k ErrorKind) String() string {
	if text, ok := errorKindText[k]; ok {
		return text
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ErrorMessage is the body of a failed command. Context holds the command or
// event name the failure was reported for; it is empty until classification.
type ErrorMessage struct {
	Code    ErrorKind `json:"eid"`
	Text    string    `json:"text"`
	Context string    `json:"context,omitempty"`
}

// CommandError surfaces a device-side rejection as a Go error.
type CommandError struct {
	Message ErrorMessage
}

func (e *CommandError) Error() string {
	if e.Message.Context != "" {
		return fmt.Sprintf("heos: %s failed: %s (eid=%d)", e.Message.Context, e.Message.Text, e.Message.Code.Code())
	}
	return fmt.Sprintf("heos: command failed: %s (eid=%d)", e.Message.Text, e.Message.Code.Code())
}

// Unwrap returns the reported ErrorKind.
func (e *CommandError) Unwrap() error { return e.Message.Code }
