// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

package main

import (
	"github.com/mtwomey/a2gcr/cmd"
)

func main() {
	cmd.Execute()
}
