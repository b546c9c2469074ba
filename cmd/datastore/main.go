package main

import "github.com/busgps/datastore/cmd/datastore/cmd"

func main() {
	cmd.Execute()
}
