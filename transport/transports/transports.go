// Package transports imports the built-in transports this module actually
// exercises, for auto-registration. Import this package to have all of them
// registered with the default registry.
package transports

import (
	// Import all transports for side-effect registration
	_ "github.com/nordlight/eventbridge/transport/channel"
	_ "github.com/nordlight/eventbridge/transport/io"
	_ "github.com/nordlight/eventbridge/transport/postgres"
	_ "github.com/nordlight/eventbridge/transport/sqlite"
)
