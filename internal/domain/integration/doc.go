// Package integration defines the ports and value objects of the marketplace
// client framework: request/response envelopes, the classified error taxonomy,
// module metadata, and the collaborator interfaces (transport, credentials,
// telemetry, quota) that infrastructure adapters implement.
//
// This package follows the Ports & Adapters pattern - nothing in here performs
// I/O. Concrete implementations live under internal/infrastructure.
package integration
