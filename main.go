// Command scriptdex indexes a game script corpus and serves the resulting catalog.
package main

import "scriptdex/cmd"

func main() {
	cmd.Execute()
}
