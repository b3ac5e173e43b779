// Package ports declares what the relay core needs from the outside world.
//
// internal/app only talks to these interfaces:
//
//   - [Transport] dials the RFLink gateways and listens for the consumer.
//   - [Notifier] takes operator alerts and must never block the caller.
//   - [Metrics] receives traffic counters.
//   - [Logger] is the structured logger from pkg/log.
//   - [HTTPClient] is what the Telegram notifier posts through.
//
// The concrete versions live under internal/adapters (tcp, notify, metrics).
// Tests in internal/app use loopback sockets and recording fakes instead.
package ports
