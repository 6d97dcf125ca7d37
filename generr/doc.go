// Package generr provides structured error types for the genetics
// resolver.
//
// This package defines standard error codes and a structured Error type
// that includes service context, operation details, error codes, and
// cause chains. It integrates with Go's standard errors package for error
// wrapping and unwrapping.
//
// Errors fall into two classes: transient errors (network-level failures
// the registry client retries) and terminal errors (structured
// application errors from a service, contract violations by the caller,
// and unparseable payloads). Retryable reports the class for a given
// code.
package generr
