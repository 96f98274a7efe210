package cst

// Kind identifies the grammar rule a Node instantiates.
type Kind int

const (
	KindInvalid Kind = iota
	KindRequestsFile
	KindRequest
	KindRequestLine
	KindMethod
	KindRequestTarget
	KindOriginForm
	KindAbsoluteForm
	KindAsteriskForm
	KindScheme
	KindHierPart
	KindAuthority
	KindHost
	KindIPv6Address
	KindIPv4OrRegName
	KindPort
	KindAbsolutePath
	KindQuery
	KindFragment
	KindHTTPVersion
	KindHeaders
	KindHeaderField
	KindFieldName
	KindFieldValue
	KindMessageBody
	KindMessages
	KindMessageLine
	KindInputFileRef
	KindFilePath
	KindResponseHandler
	KindHandlerScript
	KindResponseRef
	KindLineComment
	KindEnvVariable
	KindLiteral
)

var kindNames = [...]string{
	KindInvalid:         "Invalid",
	KindRequestsFile:    "RequestsFile",
	KindRequest:         "Request",
	KindRequestLine:     "RequestLine",
	KindMethod:          "Method",
	KindRequestTarget:   "RequestTarget",
	KindOriginForm:      "OriginForm",
	KindAbsoluteForm:    "AbsoluteForm",
	KindAsteriskForm:    "AsteriskForm",
	KindScheme:          "Scheme",
	KindHierPart:        "HierPart",
	KindAuthority:       "Authority",
	KindHost:            "Host",
	KindIPv6Address:     "Ipv6Address",
	KindIPv4OrRegName:   "Ipv4OrRegName",
	KindPort:            "Port",
	KindAbsolutePath:    "AbsolutePath",
	KindQuery:           "Query",
	KindFragment:        "Fragment",
	KindHTTPVersion:     "HttpVersion",
	KindHeaders:         "Headers",
	KindHeaderField:     "HeaderField",
	KindFieldName:       "FieldName",
	KindFieldValue:      "FieldValue",
	KindMessageBody:     "MessageBody",
	KindMessages:        "Messages",
	KindMessageLine:     "MessageLine",
	KindInputFileRef:    "InputFileRef",
	KindFilePath:        "FilePath",
	KindResponseHandler: "ResponseHandler",
	KindHandlerScript:   "HandlerScript",
	KindResponseRef:     "ResponseRef",
	KindLineComment:     "LineComment",
	KindEnvVariable:     "EnvVariable",
	KindLiteral:         "Literal",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Invalid"
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind returns the kind called name.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name && Kind(k) != KindInvalid {
			return Kind(k), true
		}
	}
	return KindInvalid, false
}

// Kinds returns every valid kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for k := range kindNames {
		if Kind(k) != KindInvalid {
			out = append(out, Kind(k))
		}
	}
	return out
}
