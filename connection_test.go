package reqldriver

import (
	"encoding/json"
	"testing"

	"reqldriver/internal/proto"
)

func TestConnectOptsAddrDefaults(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opts ConnectOpts
		want string
	}{
		{"all defaults", ConnectOpts{}, "localhost:28015"},
		{"host only", ConnectOpts{Host: "db.internal"}, "db.internal:28015"},
		{"port only", ConnectOpts{Port: 30000}, "localhost:30000"},
		{"both set", ConnectOpts{Host: "db.internal", Port: 30000}, "db.internal:30000"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.opts.addr(); got != tt.want {
				t.Errorf("addr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnectOptsPseudoOpts(t *testing.T) {
	t.Parallel()
	opts := ConnectOpts{TimeFormat: "raw", GroupFormat: "native", BinaryFormat: "raw"}
	p := opts.pseudoOpts()
	if p.TimeFormat != "raw" || p.GroupFormat != "native" || p.BinaryFormat != "raw" {
		t.Errorf("pseudoOpts() = %+v, did not carry opts through", p)
	}
}

func TestMergedOptsInjectsDatabase(t *testing.T) {
	t.Parallel()
	c := &Connection{opts: ConnectOpts{Database: "foo"}}
	merged := c.mergedOpts(nil)
	db, ok := merged["db"]
	if !ok {
		t.Fatal("expected db to be injected")
	}
	raw, err := json.Marshal(db)
	if err != nil {
		t.Fatalf("marshal injected db term: %v", err)
	}
	var decoded []interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal injected db term: %v", err)
	}
	if len(decoded) < 2 {
		t.Fatalf("expected a [type, args] term array, got %v", decoded)
	}
}

func TestMergedOptsLeavesExplicitDatabaseAlone(t *testing.T) {
	t.Parallel()
	c := &Connection{opts: ConnectOpts{Database: "foo"}}
	explicit := map[string]interface{}{"db": "already-set"}
	merged := c.mergedOpts(explicit)
	if merged["db"] != "already-set" {
		t.Errorf("expected caller-supplied db to be preserved, got %v", merged["db"])
	}
}

func TestMergedOptsNoDatabaseConfigured(t *testing.T) {
	t.Parallel()
	c := &Connection{opts: ConnectOpts{}}
	merged := c.mergedOpts(map[string]interface{}{"durability": "soft"})
	if _, ok := merged["db"]; ok {
		t.Error("did not expect a db key with no configured database")
	}
	if merged["durability"] != "soft" {
		t.Errorf("expected caller opts to survive, got %v", merged)
	}
}

func TestMergedOptsDoesNotMutateCallerMap(t *testing.T) {
	t.Parallel()
	c := &Connection{opts: ConnectOpts{Database: "foo"}}
	original := map[string]interface{}{"durability": "soft"}
	_ = c.mergedOpts(original)
	if _, ok := original["db"]; ok {
		t.Error("mergedOpts must not mutate the caller's map")
	}
}

func TestBuildQueryEnvelopeShapes(t *testing.T) {
	t.Parallel()

	t.Run("start with term and opts", func(t *testing.T) {
		t.Parallel()
		data, err := buildQueryEnvelope(proto.QueryStart, []interface{}{1, "x"}, map[string]interface{}{"db": "y"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if len(parts) != 3 {
			t.Fatalf("expected 3 parts, got %d: %s", len(parts), data)
		}
	})

	t.Run("start with term, no opts", func(t *testing.T) {
		t.Parallel()
		data, err := buildQueryEnvelope(proto.QueryStart, []interface{}{1}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if len(parts) != 2 {
			t.Fatalf("expected global_optargs omitted, got %d parts: %s", len(parts), data)
		}
	})

	t.Run("continue with no term", func(t *testing.T) {
		t.Parallel()
		data, err := buildQueryEnvelope(proto.QueryContinue, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if len(parts) != 1 {
			t.Fatalf("expected a bare [query_type], got %d parts: %s", len(parts), data)
		}
	})

	t.Run("stop with no term", func(t *testing.T) {
		t.Parallel()
		data, err := buildQueryEnvelope(proto.QueryStop, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "[3]" {
			t.Errorf("got %s, want [3]", data)
		}
	})
}
