package serial

// standardBauds is the POSIX speed_t table. Anything outside this set
// is a nonstandard rate, attempted through the OS-specific
// nonstandard-baud path: BOTHER/TCSETS2 here, the Linux analog of
// Darwin's IOSSIOSPEED.
var standardBauds = map[int]CFlag{
	50:      CFlag(0000001),
	75:      CFlag(0000002),
	110:     B110,
	134:     B134,
	150:     B150,
	200:     B200,
	300:     B300,
	600:     B600,
	1200:    B1200,
	1800:    B1800,
	2400:    B2400,
	4800:    B4800,
	9600:    B9600,
	19200:   B19200,
	38400:   B38400,
	57600:   B57600,
	115200:  B115200,
	230400:  B230400,
	460800:  B460800,
	500000:  B500000,
	576000:  B576000,
	921600:  B921600,
	1000000: B1000000,
	1152000: B1152000,
	1500000: B1500000,
	2000000: B2000000,
}

// ttyAdapter implements osAdapter over a ttyDevice. It owns the
// translation from this package's platform-neutral Config to Linux
// termios/ioctl calls.
type ttyAdapter struct {
	dev *ttyDevice
}

func newOSAdapter(path string) (osAdapter, error) {
	dev, err := openTTY(path, nil)
	if err != nil {
		return nil, err
	}
	if err := dev.makeRaw(); err != nil {
		dev.close()
		return nil, err
	}
	return &ttyAdapter{dev: dev}, nil
}

func (a *ttyAdapter) write(p []byte) (int, error) { return a.dev.write(p) }
func (a *ttyAdapter) read(p []byte) (int, error)  { return a.dev.read(p) }
func (a *ttyAdapter) close() error                { return a.dev.close() }

func (a *ttyAdapter) applyConfig(cfg *Config) error {
	attrs, err := a.dev.getAttr()
	if err != nil {
		return &Error{Kind: KindConfigurationRejected, Op: "getAttr", Err: err}
	}

	attrs.Cflag &= ^(CSTOPB)
	if cfg.StopBits == 2 {
		attrs.Cflag |= CSTOPB
	}

	attrs.Cflag &= ^(PARENB | PARODD)
	switch cfg.Parity {
	case ParityOdd:
		attrs.Cflag |= PARENB | PARODD
	case ParityEven:
		attrs.Cflag |= PARENB
	}

	attrs.Cflag &= ^(CRTSCTS)
	if cfg.RTSCTS {
		attrs.Cflag |= CRTSCTS
	}

	if cfg.EchoEnabled {
		attrs.Lflag |= ECHO
	} else {
		attrs.Lflag &= ^(ECHO)
	}

	// Linux termios has no native DTR/DSR or DCD hardware flow-control
	// field analogous to CRTSCTS; unlike the nonstandard-baud path
	// there is no ioctl fallback either, so the request is rejected
	// outright rather than silently ignored.
	if cfg.DTRDSR {
		return &Error{Kind: KindConfigurationRejected, Field: "dtrdsr", Value: cfg.DTRDSR}
	}
	if cfg.DCDFlow {
		return &Error{Kind: KindConfigurationRejected, Field: "dcd", Value: cfg.DCDFlow}
	}

	if err := a.dev.setAttr(TCSANOW, attrs); err != nil {
		return &Error{Kind: KindConfigurationRejected, Op: "setAttr", Err: err}
	}

	return a.applyBaud(cfg.BaudRate)
}

func (a *ttyAdapter) applyBaud(baud int) error {
	if cflag, ok := standardBauds[baud]; ok {
		if err := a.dev.setStandardBaud(cflag); err == nil {
			return nil
		}
	}
	if err := a.dev.setCustomBaud(uint32(baud)); err != nil {
		return &Error{Kind: KindConfigurationRejected, Field: "baudRate", Value: baud, Err: err}
	}
	return nil
}

func (a *ttyAdapter) readModemLines() (modemLines, error) {
	lines, err := a.dev.getModemLines()
	if err != nil {
		return modemLines{}, err
	}
	return modemLines{
		cts: lines&TIOCM_CTS != 0,
		dsr: lines&TIOCM_DSR != 0,
		dcd: lines&TIOCM_CAR != 0,
	}, nil
}

func (a *ttyAdapter) setRTS(on bool) error {
	if on {
		return a.dev.enableModemLines(TIOCM_RTS)
	}
	return a.dev.disableModemLines(TIOCM_RTS)
}

func (a *ttyAdapter) setDTR(on bool) error {
	if on {
		return a.dev.enableModemLines(TIOCM_DTR)
	}
	return a.dev.disableModemLines(TIOCM_DTR)
}
