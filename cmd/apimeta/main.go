// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command apimeta calls the endpoints described by a schema document.
//
//	apimeta -config client.yaml getUser 42
//	apimeta -config client.yaml -openapi
//	apimeta -config client.yaml
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/z5labs/apimeta/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "config.yaml", "path to the YAML config file")
	printOpenAPI := flag.Bool("openapi", false, "print the OpenAPI document and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config file] [-openapi] [endpoint args...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	f, err := os.Open(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer f.Close()

	args := cli.Args{
		OpenAPI: *printOpenAPI,
	}
	if flag.NArg() > 0 {
		args.Endpoint = flag.Arg(0)
		args.Params = flag.Args()[1:]
	}

	err = cli.Run(f, cli.BuildApp(args))
	if err != nil {
		return 1
	}
	return 0
}
