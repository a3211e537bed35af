//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every test with the race detector.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withEnv("CGO_ENABLED=1"), withStream())
	return err
}

// Runs the tests of a single package, e.g. `mage test:package ./engine/resources/...`.
func (Test) Package(pkg string) error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "-v", pkg), withEnv("CGO_ENABLED=1"), withStream())
	return err
}
