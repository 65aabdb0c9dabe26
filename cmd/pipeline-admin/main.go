// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the operator CLI of the meeting pipeline.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(connectNATS).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
