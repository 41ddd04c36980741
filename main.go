// Command specimen-gauge measures microscope specimens and checks their
// excision margin.
package main

import "specimen-gauge/internal/cli"

func main() {
	cli.Execute()
}
