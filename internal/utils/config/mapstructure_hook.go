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

package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"

	"github.com/ligate/edgeprep/internal/domains"
)

var (
	commandType = reflect.TypeOf(domains.Command{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// StringToCommandHookFunc - a command may be configured as a single string. It is split on whitespace into argv.
// It must precede StringToSliceHookFunc, otherwise the command is split by commas
func StringToCommandHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != commandType {
			return data, nil
		}
		return domains.Command(strings.Fields(data.(string))), nil
	}
}

// StringToDecimalHookFunc - decodes strings and numbers into decimal.Decimal. Strings are parsed exactly, floats
// are converted through their shortest representation
func StringToDecimalHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			res, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("cannot parse decimal \"%s\": %w", v, err)
			}
			return res, nil
		case float32:
			return decimal.NewFromFloat32(v), nil
		case float64:
			return decimal.NewFromFloat(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int32:
			return decimal.NewFromInt32(v), nil
		case int64:
			return decimal.NewFromInt(v), nil
		}
		return data, nil
	}
}

// DecodeHook - the decode hook chain used for the whole config tree
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		StringToCommandHookFunc(),
		StringToDecimalHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
