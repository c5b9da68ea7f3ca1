package vade

import "context"

// Kind identifies the class of identity document an operation targets. The
// core treats the document payload itself as opaque.
type Kind string

const (
	// KindDID targets DID documents.
	KindDID Kind = "did"
	// KindVC targets verifiable-credential documents.
	KindVC Kind = "vc"
)

// Valid reports whether k is a known document kind.
func (k Kind) Valid() bool {
	return k == KindDID || k == KindVC
}

// Plugin is the base interface every plugin must implement. Capabilities
// beyond the name are optional: the dispatcher discovers them by type
// assertion against the capability interfaces below, and a plugin that does
// not implement one behaves as if it returned NotApplicable for that
// operation.
//
// Plugins own all side effects (storage, network); the core observes only
// the returned Result. A returned error is an active failure, distinct from
// NotApplicable, and must describe what went wrong.
type Plugin interface {
	Name() string
}

// DocumentReader resolves documents by kind and key.
type DocumentReader interface {
	Plugin
	ReadDocument(ctx context.Context, kind Kind, key string) (Result, error)
}

// DocumentWriter creates or updates documents.
type DocumentWriter interface {
	Plugin
	WriteDocument(ctx context.Context, kind Kind, key, payload string) (Result, error)
}

// DocumentValidator checks documents. Returning an applicable Result means
// the plugin confirms validity; an error means the plugin considers the
// document invalid (or could not check it); NotApplicable means the plugin
// is not responsible for this document.
type DocumentValidator interface {
	Plugin
	CheckDocument(ctx context.Context, kind Kind, key, payload string) (Result, error)
}

// MessageSender prepares or forwards an outgoing protocol message.
type MessageSender interface {
	Plugin
	SendMessage(ctx context.Context, message string) (Result, error)
}

// MessageReceiver processes an incoming protocol message, possibly
// producing a response.
type MessageReceiver interface {
	Plugin
	ReceiveMessage(ctx context.Context, message string) (Result, error)
}

// ProofProposer handles proof-proposal requests.
type ProofProposer interface {
	Plugin
	ProposeProof(ctx context.Context, request string) (Result, error)
}

// FunctionRunner executes named custom functions outside the fixed
// operation set. A plugin not recognizing the function name returns
// NotApplicable.
type FunctionRunner interface {
	Plugin
	RunFunction(ctx context.Context, name string, args []string) (Result, error)
}
