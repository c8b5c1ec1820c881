// Package errs defines the error shape the gateway returns to its clients.
//
// Every failure that reaches the transport layer is converted into an
// *HTTPError before it is written, so clients only ever see a stable
// status, a machine-friendly code and a generic message.
package errs
