package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://orerush.io/schemas/"

var loadSchemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	ents, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	var names []string
	for _, e := range ents {
		name := e.Name()
		if !strings.HasSuffix(name, ".schema.json") {
			continue
		}
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		names = append(names, name)
	}
	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		s, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		out[strings.TrimSuffix(name, ".schema.json")] = s
	}
	return out, nil
})

// Schema returns the compiled schema for a message type.
func Schema(msgType string) (*jsonschema.Schema, error) {
	all, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	s, ok := all[msgType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msgType)
	}
	return s, nil
}

// DecodeClient parses one inbound payload into a ClientMessage.
//
// The payload is checked against the embedded schema for its type before it is
// converted, so handlers only ever see well-formed values.
func DecodeClient(b []byte) (ClientMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	t, ok := obj["type"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	switch t {
	case TypeHello:
		var m HelloMsg
		err := decodeValidated(t, raw, b, &m)
		return m, err
	case TypeCmdMove:
		var m MoveCmdMsg
		err := decodeValidated(t, raw, b, &m)
		return m, err
	case TypeCmdBuyMiner:
		var m BuyMinerCmdMsg
		err := decodeValidated(t, raw, b, &m)
		return m, err
	case TypeCmdMine:
		var m MineCmdMsg
		err := decodeValidated(t, raw, b, &m)
		return m, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

func decodeValidated(msgType string, raw any, b []byte, dst any) error {
	s, err := Schema(msgType)
	if err != nil {
		return err
	}
	if err := s.Validate(raw); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMessage, msgType, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMessage, msgType, err)
	}
	return nil
}
