// Package messaging publishes outcome events to a broker.
//
// Callers depend on Publisher only, so NATS, Kafka or the no-op driver can
// be swapped through configuration.
package messaging
