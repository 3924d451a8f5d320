package launcher

// Defaults bundles the baseline configuration values the launcher uses
// before genesis files and flags override them.

type Defaults struct {
	Network NetworkDefaults
	Query   QueryDefaults
	Logging LoggingDefaults
	Metrics MetricsDefaults
	HTTP    HTTPDefaults
}

// NetworkDefaults names the chain loaded when neither --genesis nor --preset
// is given.
type NetworkDefaults struct {
	Preset string //	Built-in preset used when no genesis file is given.
}

// QueryDefaults controls what is printed once the schedule is built.
type QueryDefaults struct {
	Heights []uint64 //	Block heights whose rule sets are printed. Empty prints one line per era.
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    //	Log level numeric (0=fatal, 1=error, 2=warn, 3=info, 4=debug, 5=trace).
	Format    string //	Log output format (text vs json).
	Color     bool   //	Whether to use ANSI color codes in logs.
	SentryDSN string //	Sentry endpoint for error reports; empty disables the hook.
}

type MetricsDefaults struct {
	Enable bool //	Log the prometheus counters before exiting.
}

// HTTPDefaults configures the inspection server.
type HTTPDefaults struct {
	Addr string //	Listen address; empty disables the server and the launcher exits after printing.
}

// DefaultConfig returns a fully populated Defaults instance.

func DefaultConfig() Defaults {
	return Defaults{
		Network: NetworkDefaults{
			Preset: "dev",
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
		},
	}
}
