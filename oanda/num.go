package oanda

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Num is a decimal OANDA may send either as a JSON string or a number.
type Num float64

func (n *Num) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		b = []byte(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("oanda: bad number %s: %w", b, err)
	}
	*n = Num(f)
	return nil
}

func (n Num) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatFloat(float64(n), 'f', -1, 64))
}

// Ptr converts an optional field.
func (n *Num) Ptr() *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}

func (n *Num) Float() float64 {
	if n == nil {
		return 0
	}
	return float64(*n)
}

// ID is an identifier OANDA may send as a string or a number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if string(b) == "null" {
		*id = ""
		return nil
	}
	*id = ID(b)
	return nil
}
