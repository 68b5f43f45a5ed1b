// Package marketplace implements the marketplace API client framework: a
// static module catalog, per-module token-bucket rate limiters, a request
// dispatcher with classification-driven retries, cursor pagination, and a
// registry of live module instances.
//
// Callers obtain a module from the Registry and invoke a typed operation;
// the module builds a RequestSpec and hands it to the Dispatcher, which
// serializes through the module's own rate limiter. Operations against
// different modules never block each other.
package marketplace
