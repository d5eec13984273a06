// Package errors provides structured error types for the OPC UA binding layer.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the browse path, the signal and node involved, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindLengthMismatch).
//		Signal(errors.SignalName(3, "SCU.Mode")).
//		Detail("expected %d, got %d", 20, 16).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.PathNotFound(path, "B")
//	err := errors.Timeout(errors.PhaseResolve, path, 2)
//
// Every error maps onto one of four categories reported to the owning component:
// ConfigurationError, ResolutionError, CodecError and TransportError. Use
// CategoryOf or the IsX helpers; all of them see through wrapping.
package errors
