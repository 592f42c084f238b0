// Copyright 2023 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package directory

import "errors"

type Config struct {
	Path string `mapstructure:"path" yaml:"path" json:"path,omitempty"`
}

func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("directory storage path cannot be empty")
	}
	return nil
}
