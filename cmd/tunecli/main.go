package main

import (
	"github.com/openecu/tune.go/pkg/cli/sh"
	"github.com/openecu/tune.go/pkg/link/env"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
