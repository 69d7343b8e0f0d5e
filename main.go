package main

import (
	"github.com/luma/regbridge/cmd"
)

func main() {
	cmd.Execute()
}
