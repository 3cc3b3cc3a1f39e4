/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// mfserver runs the preset sharing service backed by Postgres. Configuration
// comes from the environment: DATABASE_URL (or MF_PG_DSN), ADDR or PORT, and
// MF_AUTH_SECRET for token signing.
package main

import (
	"fmt"
	"os"

	"meshforge/internal/backend"
	applog "meshforge/internal/log"
	"meshforge/internal/version"
)

func main() {
	applog.Init(applog.FromEnv())

	args := os.Args
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println(version.String())
			return
		}
	}

	if err := backend.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
