// Package main provides the lisa CLI: workspace bootstrap, dependency
// install, notebook server management, source updates, target
// configuration and the Android kernel image build pipeline.
package main

func main() {
	Execute()
}
