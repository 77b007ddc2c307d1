package util

import (
	"encoding/json"
	"io"
)

//JsonString generate json string for an object
func JsonString(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

//ParseJson parse json string to an object
func ParseJson(jsonStr string, v interface{}) error {
	return json.Unmarshal([]byte(jsonStr), v)
}

//WriteJsonLines writes each item as one json object per line
func WriteJsonLines[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

//ReadJsonLines decodes json objects from r until EOF, calling fn for each of them
func ReadJsonLines[T any](r io.Reader, fn func(T) error) error {
	dec := json.NewDecoder(r)
	for {
		var item T
		err := dec.Decode(&item)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err = fn(item); err != nil {
			return err
		}
	}
}
