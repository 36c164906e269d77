// Command btmgrctl is the interactive and scriptable client for btmgrd.
package main

import "github.com/anttech/btmgrd/cmd/btmgrctl/commands"

func main() {
	commands.Execute()
}
