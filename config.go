package serial

// Parity selects the serial line's parity scheme.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

func (p Parity) String() string {
	switch p {
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return "none"
	}
}

// Config holds the mutable settings of a Port, built with chainable
// With* setters in the style of a fluent options builder.
type Config struct {
	BaudRate    int
	StopBits    int
	Parity      Parity
	RTSCTS      bool
	DTRDSR      bool
	DCDFlow     bool
	EchoEnabled bool
}

// NewConfig returns the conventional 9600-8N1 default, no flow
// control, no echo.
func NewConfig() *Config {
	return &Config{
		BaudRate: 9600,
		StopBits: 1,
		Parity:   ParityNone,
	}
}

func (c *Config) WithBaudRate(baud int) *Config {
	c.BaudRate = baud
	return c
}

func (c *Config) WithStopBits(bits int) *Config {
	c.StopBits = bits
	return c
}

func (c *Config) WithParity(p Parity) *Config {
	c.Parity = p
	return c
}

func (c *Config) WithRTSCTS(enabled bool) *Config {
	c.RTSCTS = enabled
	return c
}

func (c *Config) WithDTRDSR(enabled bool) *Config {
	c.DTRDSR = enabled
	return c
}

func (c *Config) WithDCDFlow(enabled bool) *Config {
	c.DCDFlow = enabled
	return c
}

func (c *Config) WithEcho(enabled bool) *Config {
	c.EchoEnabled = enabled
	return c
}

func (c *Config) clone() *Config {
	cp := *c
	return &cp
}
