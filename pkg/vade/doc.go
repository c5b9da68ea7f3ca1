// Package vade is a dispatch and aggregation engine for identity-document
// operations (DIDs and verifiable credentials). It exposes a single facade
// for reading, writing and validating documents and for exchanging protocol
// messages, while the logic for any one identifier scheme lives in
// independently registered plugins.
//
// # Overview
//
// The core is pure orchestration. For every operation it asks each
// registered plugin in registration order, then combines the individual
// outcomes into one result for the caller:
//
//   - Write operations require every participating plugin to succeed and
//     fail fast on the first plugin error.
//   - Read operations return the first successful answer; registration
//     order breaks ties.
//   - Validation succeeds if at least one plugin confirms the document.
//   - Protocol messaging and custom functions collect every participating
//     plugin's outcome into an ordered sequence.
//
// Document payloads and protocol messages are opaque to the core; the core
// never validates document structure, implements cryptography or persists
// anything itself.
//
// # Plugins
//
// A plugin implements the base Plugin interface plus any subset of the
// capability interfaces (DocumentReader, DocumentWriter, DocumentValidator,
// MessageSender, MessageReceiver, ProofProposer, FunctionRunner). Operations
// a plugin does not implement behave as "not applicable": the plugin is
// skipped without affecting the aggregate. A plugin that is responsible but
// cannot serve a request returns NotApplicable explicitly; an actual
// processing failure is reported through the method's error return.
//
// # Usage Example
//
//	v := vade.New(nil)
//	v.RegisterPlugin(memorystore.New(nil))
//
//	if err := v.WriteDocument(ctx, vade.KindDID, "did:example:123", doc); err != nil {
//		log.Fatal(err)
//	}
//	doc, err := v.ReadDocument(ctx, vade.KindDID, "did:example:123")
//
// # Related Packages
//
//   - pkg/plugins/memorystore: in-memory LRU document plugin
//   - pkg/plugins/redisstore: Redis-backed document plugin
//   - pkg/plugins/sqlstore: SQL-backed document plugin
//   - pkg/plugins/relay: protocol-message relay plugin
//   - pkg/api: HTTP gateway over the facade
package vade
