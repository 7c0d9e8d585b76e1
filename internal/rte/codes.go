package rte

import (
	"strconv"

	"github.com/svincent240/scormrt/internal/cmi"
)

// ErrorCode is the closed enumeration of SCORM 2004 RTE error codes.
// Codes cross the API boundary as their decimal string form.
type ErrorCode uint16

const (
	NoError                     ErrorCode = 0
	GeneralException            ErrorCode = 101
	GeneralInitFailure          ErrorCode = 102
	AlreadyInitialized          ErrorCode = 103
	ContentInstanceTerminated   ErrorCode = 104
	GeneralTerminationFailure   ErrorCode = 111
	TerminationBeforeInit       ErrorCode = 112
	TerminationAfterTermination ErrorCode = 113
	RetrieveDataBeforeInit      ErrorCode = 122
	RetrieveDataAfterTerm       ErrorCode = 123
	StoreDataBeforeInit         ErrorCode = 132
	StoreDataAfterTerm          ErrorCode = 133
	CommitBeforeInit            ErrorCode = 142
	CommitAfterTermination      ErrorCode = 143
	GeneralArgumentError        ErrorCode = 201
	GeneralGetFailure           ErrorCode = 301
	GeneralSetFailure           ErrorCode = 351
	GeneralCommitFailure        ErrorCode = 391
	UndefinedElement            ErrorCode = 401
	UnimplementedElement        ErrorCode = 402
	ValueNotInitialized         ErrorCode = 403
	ElementIsReadOnly           ErrorCode = 404
	ElementIsWriteOnly          ErrorCode = 405
	ElementTypeMismatch         ErrorCode = 406
	ElementValueOutOfRange      ErrorCode = 407
	DependencyNotEstablished    ErrorCode = 408
)

// errorMessages is the static message table behind GetErrorString.
var errorMessages = map[ErrorCode]string{
	NoError:                     "No Error",
	GeneralException:            "General Exception",
	GeneralInitFailure:          "General Initialization Failure",
	AlreadyInitialized:          "Already Initialized",
	ContentInstanceTerminated:   "Content Instance Terminated",
	GeneralTerminationFailure:   "General Termination Failure",
	TerminationBeforeInit:       "Termination Before Initialization",
	TerminationAfterTermination: "Termination After Termination",
	RetrieveDataBeforeInit:      "Retrieve Data Before Initialization",
	RetrieveDataAfterTerm:       "Retrieve Data After Termination",
	StoreDataBeforeInit:         "Store Data Before Initialization",
	StoreDataAfterTerm:          "Store Data After Termination",
	CommitBeforeInit:            "Commit Before Initialization",
	CommitAfterTermination:      "Commit After Termination",
	GeneralArgumentError:        "General Argument Error",
	GeneralGetFailure:           "General Get Failure",
	GeneralSetFailure:           "General Set Failure",
	GeneralCommitFailure:        "General Commit Failure",
	UndefinedElement:            "Undefined Data Model Element",
	UnimplementedElement:        "Unimplemented Data Model Element",
	ValueNotInitialized:         "Data Model Element Value Not Initialized",
	ElementIsReadOnly:           "Data Model Element Is Read Only",
	ElementIsWriteOnly:          "Data Model Element Is Write Only",
	ElementTypeMismatch:         "Data Model Element Type Mismatch",
	ElementValueOutOfRange:      "Data Model Element Value Out Of Range",
	DependencyNotEstablished:    "Data Model Dependency Not Established",
}

// String returns the decimal string form the API hands to content.
func (c ErrorCode) String() string {
	return strconv.Itoa(int(c))
}

// Message returns the static error string for a code, or "" for codes
// outside the table (the conformance-mandated response to unknown codes).
func (c ErrorCode) Message() string {
	return errorMessages[c]
}

// ParseErrorCode parses the decimal string form content passes to
// GetErrorString/GetDiagnostic. Unknown or malformed input yields ok=false.
func ParseErrorCode(s string) (ErrorCode, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 65535 {
		return 0, false
	}
	c := ErrorCode(n)
	_, known := errorMessages[c]
	return c, known
}

// getCode maps a data model error kind to the GetValue code space.
func getCode(kind cmi.ErrorKind) ErrorCode {
	switch kind {
	case cmi.KindUndefined:
		return UndefinedElement
	case cmi.KindUnimplemented:
		return UnimplementedElement
	case cmi.KindNotInitialized:
		return ValueNotInitialized
	case cmi.KindWriteOnly:
		return ElementIsWriteOnly
	default:
		return GeneralGetFailure
	}
}

// setCode maps a data model error kind to the SetValue code space.
//
// Cardinality violations and write-once conflicts have no dedicated code in
// the RTE table; they surface as General Set Failure with the detail in the
// diagnostic register.
func setCode(kind cmi.ErrorKind) ErrorCode {
	switch kind {
	case cmi.KindUndefined:
		return UndefinedElement
	case cmi.KindUnimplemented:
		return UnimplementedElement
	case cmi.KindReadOnly:
		return ElementIsReadOnly
	case cmi.KindTypeMismatch:
		return ElementTypeMismatch
	case cmi.KindOutOfRange:
		return ElementValueOutOfRange
	case cmi.KindDependency:
		return DependencyNotEstablished
	default:
		return GeneralSetFailure
	}
}
