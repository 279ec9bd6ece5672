// qc-collector gathers routine sequence QC outputs of finished sequencing
// runs into a single output tree. Run "qc-collector help" for usage.
package main

import "github.com/phl-genomics/qccollect/cmd/qc-collector/cmd"

func main() {
	cmd.Run()
}
