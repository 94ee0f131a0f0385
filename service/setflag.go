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

package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/magiconair/properties"
)

// setFlagsToMap reads the --set flags as a "properties" file and returns the
// nested map they describe. "exporter.token=abc" becomes
// {"exporter": {"token": "abc"}}.
func setFlagsToMap(flagProperties []string) (map[string]interface{}, error) {
	if len(flagProperties) == 0 {
		return map[string]interface{}{}, nil
	}

	b := &bytes.Buffer{}
	for _, property := range flagProperties {
		property = strings.TrimSpace(property)
		if !strings.Contains(property, "=") {
			return nil, fmt.Errorf("missing equal sign in %q", property)
		}
		if _, err := fmt.Fprintf(b, "%s\n", property); err != nil {
			return nil, err
		}
	}

	props, err := properties.Load(b.Bytes(), properties.UTF8)
	if err != nil {
		return nil, err
	}

	// Create a map manually instead of using props.Map() to keep the
	// property expansion done by Get.
	parsed := make(map[string]interface{}, props.Len())
	for _, key := range props.Keys() {
		value, _ := props.Get(key)
		parsed[key] = value
	}
	return maps.Unflatten(parsed, "."), nil
}
