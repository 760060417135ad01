// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters, internal/accumulator) implement
// them with concrete implementations (pebble, MQTT, HTTP, zerolog, etc.).
//
// # Port Interfaces
//
//   - [AccumulationStore]: buffers messages and offers ready compressed batches
//   - [Transport]: publishes a payload to a topic
//   - [Codec]: compresses and decompresses batch payloads
//   - [Spool]: durable ordered storage for sealed and unsent batches
//   - [StatusRepository]: persists delivery status for operators
//   - [Logger]: structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
package ports
