package polyglot

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeInbound(t *testing.T) {
	table := []struct {
		name    string
		input   string
		want    []Inbound
		unknown []string
	}{{
		name:  "poll",
		input: `{"shortPoll": {}}`,
		want:  []Inbound{{Kind: ShortPoll}},
	}, {
		name:  "start with params",
		input: `{"customparams": {"latitude": "40.0", "longitude": -74, "elevation": null}, "config": {"x": 1}}`,
		want: []Inbound{
			{Kind: Start},
			{Kind: CustomParams, Params: map[string]string{"latitude": "40.0", "longitude": "-74", "elevation": ""}},
		},
	}, {
		name:  "config carries params",
		input: `{"config": {"customParams": {"latitude": "51.5", "longitude": "-0.12"}, "isyVersion": "5.3.4"}}`,
		want: []Inbound{
			{Kind: Start, Params: map[string]string{"latitude": "51.5", "longitude": "-0.12"}},
		},
	}, {
		name:  "query",
		input: `{"query": {"address": "sunctrl"}, "longPoll": {}, "stop": {}}`,
		want: []Inbound{
			{Kind: Query, Address: "sunctrl"},
			{Kind: LongPoll},
			{Kind: Stop},
		},
	}, {
		name:    "unknown",
		input:   `{"delete": {}, "discover": {}}`,
		unknown: []string{"delete", "discover"},
	}}

	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			got, unknown, err := DecodeInbound([]byte(tc.input))
			if err != nil {
				t.Fatalf("unexpected: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("wrong operations (-want,+got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.unknown, unknown); diff != "" {
				t.Errorf("wrong unknown keys (-want,+got):\n%s", diff)
			}
		})
	}
}

func TestDecodeInboundErrors(t *testing.T) {
	for _, input := range []string{
		`not json`,
		`["shortPoll"]`,
		`{"customparams": "latitude=1"}`,
		`{"customparams": {"latitude": [1]}}`,
		`{"config": {"customParams": {"latitude": {"deg": 1}}}}`,
	} {
		t.Run(input, func(t *testing.T) {
			if _, _, err := DecodeInbound([]byte(input)); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestEncode(t *testing.T) {
	table := []struct {
		name string
		got  func() ([]byte, error)
		want string
	}{{
		name: "set",
		got: func() ([]byte, error) {
			return EncodeSet(DriverUpdate{"sunctrl", "GV0", "123.45", 14})
		},
		want: `{"set":[{"address":"sunctrl","driver":"GV0","value":"123.45","uom":14}]}`,
	}, {
		name: "command",
		got:  func() ([]byte, error) { return EncodeCommand(Command{"sunctrl", "DOF"}) },
		want: `{"command":[{"address":"sunctrl","cmd":"DOF"}]}`,
	}, {
		name: "addnotice",
		got:  func() ([]byte, error) { return EncodeAddNotice(Notice{"latitude", "Please"}) },
		want: `{"addnotice":{"key":"latitude","value":"Please"}}`,
	}, {
		name: "removenotice",
		got:  func() ([]byte, error) { return EncodeRemoveNotice("latitude") },
		want: `{"removenotice":{"key":"latitude"}}`,
	}, {
		name: "addnode",
		got: func() ([]byte, error) {
			return EncodeAddNode(Node{"sunctrl", "Sun Position", "SUNCTRL", "sunctrl", []Driver{{"ST", "1", 2}}})
		},
		want: `{"addnode":[{"address":"sunctrl","name":"Sun Position","nodeDefId":"SUNCTRL","primary":"sunctrl","drivers":[{"driver":"ST","value":"1","uom":2}]}]}`,
	}}

	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.got()
			if err != nil {
				t.Fatalf("unexpected: %v", err)
			}
			if diff := cmp.Diff(tc.want, string(got)); diff != "" {
				t.Errorf("wrong encoding (-want,+got):\n%s", diff)
			}
		})
	}
}

func TestTopics(t *testing.T) {
	cfg := Config{NodeServer: "sunpos"}
	if got, want := cfg.InputTopic(), "udi/pg3/ns/clients/sunpos"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := cfg.OutputTopic(), "udi/pg3/ns/status/sunpos"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
