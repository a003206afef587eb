// Command colpoolctl is colpool's diagnostic and demonstration CLI:
// host/pool memory reporting and a telemetry server, grounded on
// cmd/client/main.go's slog + signal-context shutdown shape and
// cmd/cli's cobra command tree.
package main

import "github.com/colpool/colpool/cmd/colpoolctl/cmd"

func main() {
	cmd.Execute()
}
