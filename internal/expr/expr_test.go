package expr

import (
	"encoding/json"
	"testing"

	"github.com/joeblew999/plat-trees/internal/feature"
)

func TestJSON(t *testing.T) {
	e := All(Has("plant_year"), Gte(ToNumber(Get("plant_year")), 2000), Eq(Get("sigle"), "MAAM"))
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	want := `["all",["has","plant_year"],[">=",["to-number",["get","plant_year"]],2000],["==",["get","sigle"],"MAAM"]]`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}

	var nilExpr Expr
	b, _ = json.Marshal(nilExpr)
	if string(b) != "null" {
		t.Fatalf("nil expr = %s", b)
	}
}

func TestMatch(t *testing.T) {
	inRange := All(Has("y"), Gte(ToNumber(Get("y")), 2000), Lte(ToNumber(Get("y")), 2010))

	tests := []struct {
		name  string
		e     Expr
		attrs feature.Attrs
		want  bool
	}{
		{"nil matches", nil, feature.Attrs{}, true},
		{"in range", inRange, feature.Attrs{"y": 2005.0}, true},
		{"numeric string", inRange, feature.Attrs{"y": "2005"}, true},
		{"below", inRange, feature.Attrs{"y": 1990.0}, false},
		{"unparsable", inRange, feature.Attrs{"y": "n/a"}, false},
		{"missing", inRange, feature.Attrs{}, false},
		{"null", inRange, feature.Attrs{"y": nil}, false},
		{"never", Never(), feature.Attrs{"y": 2005.0}, false},
		{"not has", Not(Has("y")), feature.Attrs{}, true},
		{"eq string", Eq(Get("s"), "MAAM"), feature.Attrs{"s": "MAAM"}, true},
		{"eq case sensitive", Eq(Get("s"), "MAAM"), feature.Attrs{"s": "maam"}, false},
		{"eq type mismatch", Eq(Get("s"), "1"), feature.Attrs{"s": 1.0}, false},
		{"any", Any(Has("a"), Has("b")), feature.Attrs{"b": "x"}, true},
		{"slice", Gte(ToNumber(Slice(Get("d"), 0, 4)), 2019), feature.Attrs{"d": "2019-05-01"}, true},
		{"slice short", Eq(Slice(Get("d"), 0, 4), "20"), feature.Attrs{"d": "20"}, true},
		{"unknown op", Expr{"zip", 1}, feature.Attrs{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.e, tt.attrs); got != tt.want {
				t.Errorf("Match(%v, %v) = %v, want %v", tt.e, tt.attrs, got, tt.want)
			}
		})
	}
}

func TestMatchDecoded(t *testing.T) {
	var e Expr
	if err := json.Unmarshal([]byte(`["all",["has","y"],[">=",["get","y"],2000]]`), &e); err != nil {
		t.Fatal(err)
	}
	if !Match(e, feature.Attrs{"y": 2001.0}) {
		t.Fatal("decoded expression should match")
	}
}
