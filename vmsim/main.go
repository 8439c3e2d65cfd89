// Command vmsim runs user programs on a simulated paging subsystem.
package main

import "github.com/sarchlab/vmsim/vmsim/cmd"

func main() {
	cmd.Execute()
}
