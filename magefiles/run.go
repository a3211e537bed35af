//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds the binary and runs the engine with prism.toml.
func (Run) Engine() error {
	mg.Deps(Build.Binary)
	fmt.Println("Run engine...")
	if _, err := executeCmd(binaryName, withArgs("-config", "prism.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Copies the resource tree into a new project directory, e.g. `mage run:project ./sandbox`.
func (Run) Project(dir string) error {
	mg.Deps(Build.Binary)
	_, err := executeCmd(binaryName, withArgs("-config", "prism.toml", "-project", dir), withStream())
	return err
}
