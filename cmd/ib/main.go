// Command ib plans and runs a C/C++ build.
package main

import "github.com/ibuild/ib/pkg/cli"

func main() {
	cli.Execute()
}
