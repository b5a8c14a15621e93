// Package serial is a user-space abstraction over OS serial (tty)
// devices: lifecycle-managed device handles with asynchronous I/O,
// hotplug-aware enumeration via PortManager, a streaming packet
// framing engine, and a single-outstanding-request transaction layer.
package serial
