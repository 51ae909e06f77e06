/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Date is the GraphQL Date scalar: an integer number of milliseconds since the Unix epoch
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	return Date{t}
}

func (Date) ImplementsGraphQLType(name string) bool {
	return name == "Date"
}

// UnmarshalGraphQL accepts int, float and numeric string inputs.
// Integer literals written in a query reach here as int32, which cannot hold a current timestamp:
// clients send those as variables, floats or strings. No schema field takes a Date input yet.
func (d *Date) UnmarshalGraphQL(input any) error {
	var millis int64
	switch v := input.(type) {
	case int32:
		millis = int64(v)
	case int64:
		millis = v
	case int:
		millis = int64(v)
	case float64:
		millis = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return fmt.Errorf("Date: %w", err)
		}
		millis = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("Date: %q is not a millisecond timestamp", v)
		}
		millis = n
	case time.Time:
		d.Time = v
		return nil
	default:
		return fmt.Errorf("Date: unsupported input %T", input)
	}
	d.Time = time.UnixMilli(millis)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, d.UnixMilli(), 10), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("Date: %w", err)
	}
	return d.UnmarshalGraphQL(n)
}
