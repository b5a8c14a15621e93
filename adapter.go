package serial

// modemLines is the set of modem-line input states reported by the
// OS adapter: CTS/DSR/DCD.
type modemLines struct {
	cts, dsr, dcd bool
}

// osAdapter is the narrow capability the platform layer must expose.
// Port depends on this interface rather than a concrete device so
// tests can substitute an in-memory fake (see fakeAdapter in
// port_test.go), the same way wiresock-ndisapi-go pulls
// NdisApiInterface out of its concrete driver handle for gomock-based
// testing.
type osAdapter interface {
	write(p []byte) (int, error)
	read(p []byte) (int, error)
	close() error
	applyConfig(cfg *Config) error
	readModemLines() (modemLines, error)
	setRTS(on bool) error
	setDTR(on bool) error
}
