package modem

import (
	"time"
)

// Config holds the modem timing parameters shared by the Initializer and
// the SMS state machine. Build one with NewConfigBuilder.
type Config struct {
	dialer Dialer

	bootDelay        time.Duration
	commandSettle    time.Duration
	registerSettle   time.Duration
	responseTimeout  time.Duration
	clockSettle      time.Duration
	readDeleteSettle time.Duration
	sendSettle       time.Duration
	sendDataDelay    time.Duration
	sendEndSettle    time.Duration
	maxMessageLength int
}

// Dialer returns the configured Dialer.
func (c Config) Dialer() Dialer { return c.dialer }

// ResponseTimeout returns the length of every response collection window.
func (c Config) ResponseTimeout() time.Duration { return c.responseTimeout }

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.bootDelay == 0 {
		c.bootDelay = 2 * time.Second
	}
	if c.commandSettle == 0 {
		c.commandSettle = 500 * time.Millisecond
	}
	if c.registerSettle == 0 {
		c.registerSettle = time.Second
	}
	if c.responseTimeout == 0 {
		c.responseTimeout = time.Second
	}
	if c.clockSettle == 0 {
		c.clockSettle = 200 * time.Millisecond
	}
	if c.readDeleteSettle == 0 {
		c.readDeleteSettle = time.Second
	}
	if c.sendSettle == 0 {
		c.sendSettle = time.Second
	}
	if c.sendDataDelay == 0 {
		c.sendDataDelay = 100 * time.Millisecond
	}
	if c.sendEndSettle == 0 {
		c.sendEndSettle = 5 * time.Second
	}
	if c.maxMessageLength == 0 {
		c.maxMessageLength = 160
	}
}

// ConfigBuilder assembles a Config. Zero values fall back to the SIM800L
// timings in use on deployed nodes.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets the Dialer used to open the transport.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithBootDelay sets how long to wait after opening the transport before
// the first command.
func (b *ConfigBuilder) WithBootDelay(d time.Duration) *ConfigBuilder {
	b.config.bootDelay = d
	return b
}

// WithCommandSettle sets the settle delay after each bring-up command.
func (b *ConfigBuilder) WithCommandSettle(d time.Duration) *ConfigBuilder {
	b.config.commandSettle = d
	return b
}

// WithRegistrationSettle sets the settle delay after AT+CREG?.
func (b *ConfigBuilder) WithRegistrationSettle(d time.Duration) *ConfigBuilder {
	b.config.registerSettle = d
	return b
}

// WithResponseTimeout sets the length of every response window.
func (b *ConfigBuilder) WithResponseTimeout(d time.Duration) *ConfigBuilder {
	b.config.responseTimeout = d
	return b
}

// WithClockSettle sets the wait between AT+CCLK? and collecting its reply.
func (b *ConfigBuilder) WithClockSettle(d time.Duration) *ConfigBuilder {
	b.config.clockSettle = d
	return b
}

// WithReadDeleteSettle sets the settle delay after AT+CMGR and AT+CMGD.
func (b *ConfigBuilder) WithReadDeleteSettle(d time.Duration) *ConfigBuilder {
	b.config.readDeleteSettle = d
	return b
}

// WithSendSettle sets the settle delay after AT+CMGS.
func (b *ConfigBuilder) WithSendSettle(d time.Duration) *ConfigBuilder {
	b.config.sendSettle = d
	return b
}

// WithSendDataDelay sets the pause between the message body and Ctrl-Z.
func (b *ConfigBuilder) WithSendDataDelay(d time.Duration) *ConfigBuilder {
	b.config.sendDataDelay = d
	return b
}

// WithSendEndSettle sets how long the network gets to accept a message.
func (b *ConfigBuilder) WithSendEndSettle(d time.Duration) *ConfigBuilder {
	b.config.sendEndSettle = d
	return b
}

// WithMaxMessageLength sets the length above which a long-message warning
// is logged. Messages are never split.
func (b *ConfigBuilder) WithMaxMessageLength(n int) *ConfigBuilder {
	b.config.maxMessageLength = n
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	config.setDefaults()
	return config, nil
}
