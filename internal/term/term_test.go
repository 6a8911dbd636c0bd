package term

import (
	"encoding/json"
	"testing"
)

func TestDatumEncoding(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		term Term
		want string
	}{
		{"string", Datum("foo"), `"foo"`},
		{"number", Datum(42), `42`},
		{"float", Datum(3.14), `3.14`},
		{"bool", Datum(true), `true`},
		{"nil", Datum(nil), `null`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := json.Marshal(tc.term)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDBAndTable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		term Term
		want string
	}{
		{"db", DB("test"), `[14,["test"]]`},
		{"db_create", DBCreate("test"), `[57,["test"]]`},
		{"table", DB("test").Table("users"), `[15,[[14,["test"]],"users"]]`},
		{"table_create", DB("test").TableCreate("users"), `[60,[[14,["test"]],"users"]]`},
		{
			"table_create_with_opts",
			DB("test").TableCreate("users", OptArgs{"primary_key": "id"}),
			`[60,[[14,["test"]],"users"],{"primary_key":"id"}]`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := json.Marshal(tc.term)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestInsert(t *testing.T) {
	t.Parallel()
	table := DB("test").Table("users")
	tests := []struct {
		name string
		term Term
		want string
	}{
		{
			"doc",
			table.Insert(map[string]interface{}{"name": "alice"}),
			`[56,[[15,[[14,["test"]],"users"]],{"name":"alice"}]]`,
		},
		{
			"array",
			table.Insert(Array(map[string]interface{}{"n": 1}, map[string]interface{}{"n": 2})),
			`[56,[[15,[[14,["test"]],"users"]],[2,[{"n":1},{"n":2}]]]]`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := json.Marshal(tc.term)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAnd(t *testing.T) {
	t.Parallel()
	got, err := json.Marshal(Datum(true).And(Datum(false)))
	if err != nil {
		t.Fatal(err)
	}
	if want := `[67,[true,false]]`; string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestChangesAndNow(t *testing.T) {
	t.Parallel()
	table := DB("test").Table("users")
	tests := []struct {
		name string
		term Term
		want string
	}{
		{"changes", table.Changes(), `[152,[[15,[[14,["test"]],"users"]]]]`},
		{"changes_empty_opts", table.Changes(OptArgs{}), `[152,[[15,[[14,["test"]],"users"]]]]`},
		{
			"changes_include_initial",
			table.Changes(OptArgs{"include_initial": true}),
			`[152,[[15,[[14,["test"]],"users"]]],{"include_initial":true}]`,
		},
		{"now", Now(), `[103,[]]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := json.Marshal(tc.term)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestArray(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		term Term
		want string
	}{
		{"simple", Array(10, 20, 30), `[2,[10,20,30]]`},
		{"empty", Array(), `[2,[]]`},
		{"nested", Array(Array(1, 2), 3), `[2,[[2,[1,2]],3]]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := json.Marshal(tc.term)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestBuildReturnsSerializableTerm(t *testing.T) {
	t.Parallel()
	built, err := DB("test").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := json.Marshal(built)
	if err != nil {
		t.Fatal(err)
	}
	if want := `[14,["test"]]`; string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
