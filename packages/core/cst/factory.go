package cst

func newLeaf(kind Kind, loc Location, value string) *Node {
	return &Node{kind: kind, loc: loc, value: value, leaf: true}
}

func newBranch(kind Kind, loc Location, children []*Node) *Node {
	owned := make([]*Node, len(children))
	copy(owned, children)
	return &Node{kind: kind, loc: loc, children: owned}
}

// NewLeaf builds a leaf node of any kind. The kind-specific constructors
// below are preferred; NewLeaf exists for decoders and tests.
func NewLeaf(kind Kind, loc Location, value string) *Node {
	return newLeaf(kind, loc, value)
}

// NewBranch builds a composite node of any kind.
func NewBranch(kind Kind, loc Location, children ...*Node) *Node {
	return newBranch(kind, loc, children)
}

func NewRequestsFile(loc Location, children ...*Node) *Node {
	return newBranch(KindRequestsFile, loc, children)
}

func NewRequest(loc Location, children ...*Node) *Node {
	return newBranch(KindRequest, loc, children)
}

func NewRequestLine(loc Location, children ...*Node) *Node {
	return newBranch(KindRequestLine, loc, children)
}

func NewMethod(loc Location, value string) *Node {
	return newLeaf(KindMethod, loc, value)
}

func NewRequestTarget(loc Location, children ...*Node) *Node {
	return newBranch(KindRequestTarget, loc, children)
}

func NewOriginForm(loc Location, children ...*Node) *Node {
	return newBranch(KindOriginForm, loc, children)
}

func NewAbsoluteForm(loc Location, children ...*Node) *Node {
	return newBranch(KindAbsoluteForm, loc, children)
}

func NewAsteriskForm(loc Location, value string) *Node {
	return newLeaf(KindAsteriskForm, loc, value)
}

func NewScheme(loc Location, value string) *Node {
	return newLeaf(KindScheme, loc, value)
}

func NewHierPart(loc Location, children ...*Node) *Node {
	return newBranch(KindHierPart, loc, children)
}

func NewAuthority(loc Location, children ...*Node) *Node {
	return newBranch(KindAuthority, loc, children)
}

func NewHost(loc Location, children ...*Node) *Node {
	return newBranch(KindHost, loc, children)
}

func NewIPv6Address(loc Location, value string) *Node {
	return newLeaf(KindIPv6Address, loc, value)
}

func NewIPv4OrRegName(loc Location, value string) *Node {
	return newLeaf(KindIPv4OrRegName, loc, value)
}

func NewPort(loc Location, value string) *Node {
	return newLeaf(KindPort, loc, value)
}

func NewAbsolutePath(loc Location, value string) *Node {
	return newLeaf(KindAbsolutePath, loc, value)
}

func NewQuery(loc Location, value string) *Node {
	return newLeaf(KindQuery, loc, value)
}

func NewFragment(loc Location, value string) *Node {
	return newLeaf(KindFragment, loc, value)
}

func NewHTTPVersion(loc Location, value string) *Node {
	return newLeaf(KindHTTPVersion, loc, value)
}

func NewHeaders(loc Location, children ...*Node) *Node {
	return newBranch(KindHeaders, loc, children)
}

func NewHeaderField(loc Location, children ...*Node) *Node {
	return newBranch(KindHeaderField, loc, children)
}

func NewFieldName(loc Location, value string) *Node {
	return newLeaf(KindFieldName, loc, value)
}

func NewFieldValue(loc Location, value string) *Node {
	return newLeaf(KindFieldValue, loc, value)
}

func NewMessageBody(loc Location, children ...*Node) *Node {
	return newBranch(KindMessageBody, loc, children)
}

func NewMessages(loc Location, children ...*Node) *Node {
	return newBranch(KindMessages, loc, children)
}

func NewMessageLine(loc Location, value string) *Node {
	return newLeaf(KindMessageLine, loc, value)
}

func NewInputFileRef(loc Location, children ...*Node) *Node {
	return newBranch(KindInputFileRef, loc, children)
}

func NewFilePath(loc Location, value string) *Node {
	return newLeaf(KindFilePath, loc, value)
}

func NewResponseHandler(loc Location, children ...*Node) *Node {
	return newBranch(KindResponseHandler, loc, children)
}

func NewHandlerScript(loc Location, value string) *Node {
	return newLeaf(KindHandlerScript, loc, value)
}

func NewResponseRef(loc Location, children ...*Node) *Node {
	return newBranch(KindResponseRef, loc, children)
}

func NewLineComment(loc Location, value string) *Node {
	return newLeaf(KindLineComment, loc, value)
}

func NewEnvVariable(loc Location, value string) *Node {
	return newLeaf(KindEnvVariable, loc, value)
}

// NewLiteral builds a node for structural punctuation such as ':', '?' or
// '://'.
func NewLiteral(loc Location, value string) *Node {
	return newLeaf(KindLiteral, loc, value)
}
