// Copyright The hecbridge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Program hecbridge forwards Kafka audit log records to a Splunk HTTP Event Collector.
package main

import (
	"log"

	"github.com/hecbridge/hecbridge/service"
)

// Set with -ldflags "-X main.version=...".
var version = "latest"

func main() {
	info := service.BuildInfo{
		Command:     "hecbridge",
		Description: "Kafka to Splunk HEC bridge",
		Version:     version,
	}

	app, err := service.New(service.AppSettings{BuildInfo: info})
	if err != nil {
		log.Fatalf("failed to construct the application: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("application run finished with error: %v", err)
	}
}
