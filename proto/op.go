package proto

// Operator console commands.
const (
	CMD_QUIT   = ":q"
	CMD_REDRAW = ":redraw"
	CMD_DRAW   = ":draw"
	CMD_WHO    = ":who"
)

// Default relay port used by both ends.
const DEFAULT_PORT = 5000

// Default capacity of a relay session table.
const MAX_CLIENTS = 10

// Discovery registry names.
const (
	DIG_RELAY_SERVICE_NAME = "linker-sketch-relay"
	DIG_ENDPOINT_KEY       = "endpoint"
	DIG_NODEID_KEY         = "linker-nodeid"
)
