// Command agentstatus reports the status of Kubernetes elastic build agents.
package main

import (
	"os"

	"github.com/groblegark/agentstatus/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
