// Command records inspects and edits the rows of SQLite tables through the
// record mapper.
package main

import "github.com/mesh-intelligence/records/internal/cli"

func main() {
	cli.Execute()
}
