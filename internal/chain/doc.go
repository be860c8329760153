// Package chain implements a fluent proxy: a wrapper that lets a caller
// drive a sequence of member accesses and calls against a target object
// (the proxy) as one uninterrupted chain, with meta-operations for storing
// intermediate values, switching the proxy mid-chain and tapping values
// without breaking the chain.
//
// ARCHITECTURE:
//
// Chain (facade) -> Engine.Resolve (attribute access) -> Engine.Invoke (call)
//
// Every attribute access on the facade is forwarded to Engine.Resolve and
// every call to Engine.Invoke. Keys that start with the reserved prefix
// ("chain_" by default) are routed to the engine's own meta-operations;
// everything else is looked up on the current proxy by reflection.
//
// Current vs current value:
//
// The engine keeps two slots. current is what the next Invoke calls;
// currentValue is the last value that came from the proxy. Resolving a
// meta-operation moves the operation into current but leaves currentValue
// pointing at the last real value, so "store", "tap" and "promote_value"
// act on proxy data and never on chain bookkeeping. Calling a
// meta-operation never overwrites current (every tagged operation keeps
// current); calling a proxy member replaces both slots with its result.
//
// Bypass:
//
// Operations tagged with bypass ("exit", "get_stored", "retrieve") hand
// their return value back to the caller instead of continuing the chain.
// Engine.Invoke reports this with a bool so a nil result can still be told
// apart from "no result".
//
// Go has no universal attribute hook, so the facade exposes Attr and
// Call/Invoke explicitly:
//
//	shapes, err := chain.New(container).
//		Do("create", "square").
//		Do("chain_promote_value").
//		Do("set_length", 4).
//		Do("chain_demote_value").
//		Exit()
//
// A chain is single-owner and synchronous. Nothing is locked; sharing one
// between goroutines is not supported.
package chain
