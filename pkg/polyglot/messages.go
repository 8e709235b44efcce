package polyglot

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind names an inbound operation.
type Kind string

const (
	Start        Kind = "start"
	Stop         Kind = "stop"
	ShortPoll    Kind = "shortPoll"
	LongPoll     Kind = "longPoll"
	CustomParams Kind = "customparams"
	Query        Kind = "query"
)

// inboundKeys maps message keys to operations. "config" is what the
// controller sends when the node server starts.
var inboundKeys = map[string]Kind{
	"config":       Start,
	"start":        Start,
	"stop":         Stop,
	"shortPoll":    ShortPoll,
	"longPoll":     LongPoll,
	"customparams": CustomParams,
	"query":        Query,
}

// order of handling when one message carries several operations.
var kindOrder = map[Kind]int{
	Start:        0,
	CustomParams: 1,
	Query:        2,
	ShortPoll:    3,
	LongPoll:     4,
	Stop:         5,
}

// Inbound is one operation requested by the controller.
type Inbound struct {
	Kind    Kind
	Params  map[string]string // CustomParams, or Start when config carries them
	Address string            // Query, empty means all nodes
}

// Driver is a node value slot as declared in the node definition.
type Driver struct {
	Driver string `json:"driver"`
	Value  string `json:"value"`
	UOM    int    `json:"uom"`
}

type Node struct {
	Address   string   `json:"address"`
	Name      string   `json:"name"`
	NodeDefID string   `json:"nodeDefId"`
	Primary   string   `json:"primary"`
	Drivers   []Driver `json:"drivers"`
}

type DriverUpdate struct {
	Address string `json:"address"`
	Driver  string `json:"driver"`
	Value   string `json:"value"`
	UOM     int    `json:"uom"`
}

type Command struct {
	Address string `json:"address"`
	Cmd     string `json:"cmd"`
}

type Notice struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// DecodeInbound parses a controller message. Unknown keys are returned so
// the caller can log them.
func DecodeInbound(payload []byte) ([]Inbound, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, nil, fmt.Errorf("malformed message: %w", err)
	}

	var out []Inbound
	var unknown []string
	for key, body := range raw {
		kind, ok := inboundKeys[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		in := Inbound{Kind: kind}
		switch kind {
		case Start:
			var cfg struct {
				CustomParams json.RawMessage `json:"customParams"`
			}
			// Only the custom parameters of a config message are used.
			if json.Unmarshal(body, &cfg) == nil && len(cfg.CustomParams) > 0 && string(cfg.CustomParams) != "null" {
				params, err := decodeParams(cfg.CustomParams)
				if err != nil {
					return nil, nil, fmt.Errorf("config customParams: %w", err)
				}
				in.Params = params
			}
		case CustomParams:
			params, err := decodeParams(body)
			if err != nil {
				return nil, nil, fmt.Errorf("customparams: %w", err)
			}
			in.Params = params
		case Query:
			var q struct {
				Address string `json:"address"`
			}
			// A bare query carries no body worth reading.
			_ = json.Unmarshal(body, &q)
			in.Address = q.Address
		}
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		return kindOrder[out[i].Kind] < kindOrder[out[j].Kind]
	})
	sort.Strings(unknown)
	return out, unknown, nil
}

// decodeParams accepts string, number and boolean values.
func decodeParams(body json.RawMessage) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	params := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
			params[k] = ""
		case string:
			params[k] = v
		case float64, bool:
			params[k] = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("parameter %s has unsupported value %v", k, v)
		}
	}
	return params, nil
}

func encode(key string, v any) ([]byte, error) {
	return json.Marshal(map[string]any{key: v})
}

func EncodeAddNode(nodes ...Node) ([]byte, error) {
	return encode("addnode", nodes)
}

func EncodeSet(updates ...DriverUpdate) ([]byte, error) {
	return encode("set", updates)
}

func EncodeCommand(cmds ...Command) ([]byte, error) {
	return encode("command", cmds)
}

func EncodeAddNotice(n Notice) ([]byte, error) {
	return encode("addnotice", n)
}

func EncodeRemoveNotice(key string) ([]byte, error) {
	return encode("removenotice", Notice{Key: key})
}
