// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/collegelinks/collegelinks/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
