package condition

import (
	"testing"
)

func rec(kv ...interface{}) Record {
	r := Record{}
	for i := 0; i < len(kv)-1; i += 2 {
		r[kv[i].(string)] = kv[i+1]
	}
	return r
}

type evalCase struct {
	name    string
	expr    string
	ctx     EvalContext
	want    bool
	wantErr bool
}

func TestEvaluate(t *testing.T) {
	cases := []evalCase{
		// Numeric comparisons
		{
			name: "gt true",
			expr: "S.A.age > 18",
			ctx:  rec("S.A.age", float64(40)),
			want: true,
		},
		{
			name: "gt false",
			expr: "S.A.age > 18",
			ctx:  rec("S.A.age", float64(12)),
			want: false,
		},
		{
			name: "gte equal",
			expr: "S.A.age >= 18",
			ctx:  rec("S.A.age", 18),
			want: true,
		},
		{
			name: "double equals accepted",
			expr: "S.A.age == 18",
			ctx:  rec("S.A.age", float64(18)),
			want: true,
		},
		// Dates compare lexically
		{
			name: "date before",
			expr: `S.A.dob < "2000-01-01"`,
			ctx:  rec("S.A.dob", "1985-06-30"),
			want: true,
		},
		// String equality
		{
			name: "eq string",
			expr: `S.B.sex = "Male"`,
			ctx:  rec("S.B.sex", "Male"),
			want: true,
		},
		{
			name: "neq string",
			expr: `S.B.sex != "Male"`,
			ctx:  rec("S.B.sex", "Female"),
			want: true,
		},
		// Boolean
		{
			name: "bool eq",
			expr: "S.A.smoker = true",
			ctx:  rec("S.A.smoker", true),
			want: true,
		},
		{
			name: "bool eq false literal",
			expr: "S.A.smoker = false",
			ctx:  rec("S.A.smoker", true),
			want: false,
		},
		// AND / OR
		{
			name: "AND both true",
			expr: `S.B.sex = "Male" AND S.A.age > 18`,
			ctx:  rec("S.B.sex", "Male", "S.A.age", float64(30)),
			want: true,
		},
		{
			name: "OR first true",
			expr: `S.B.sex = "Male" OR S.A.age > 18`,
			ctx:  rec("S.B.sex", "Male", "S.A.age", float64(3)),
			want: true,
		},
		{
			name: "grouping",
			expr: `(S.B.sex = "Male" OR S.B.sex = "Female") AND S.A.age > 18`,
			ctx:  rec("S.B.sex", "Female", "S.A.age", float64(3)),
			want: false,
		},
		// NOT
		{
			name: "NOT true",
			expr: `NOT S.A.age > 18`,
			ctx:  rec("S.A.age", float64(5)),
			want: true,
		},
		// contains / like
		{
			name: "contains",
			expr: `S.A.name contains "ann"`,
			ctx:  rec("S.A.name", "Joanne"),
			want: true,
		},
		{
			name: "like wildcard",
			expr: `S.A.name like "Jo%e"`,
			ctx:  rec("S.A.name", "Joanne"),
			want: true,
		},
		{
			name: "like single char",
			expr: `S.A.name like "J_e"`,
			ctx:  rec("S.A.name", "Joanne"),
			want: false,
		},
		// in / not in
		{
			name: "in list",
			expr: `S.B.code in ["a", "b"]`,
			ctx:  rec("S.B.code", "b"),
			want: true,
		},
		{
			name: "not in list",
			expr: `S.B.code not in ["a", "b"]`,
			ctx:  rec("S.B.code", "b"),
			want: false,
		},
		{
			name: "in numbers",
			expr: `S.A.age in [1, 2, 3]`,
			ctx:  rec("S.A.age", 2),
			want: true,
		},
		// null checks
		{
			name: "is null on missing field",
			expr: `S.A.died is null`,
			ctx:  rec(),
			want: true,
		},
		{
			name: "is not null",
			expr: `S.A.died IS NOT NULL`,
			ctx:  rec("S.A.died", "2020-01-01"),
			want: true,
		},
		// Nested maps
		{
			name: "nested record",
			expr: `S.A.age > 1`,
			ctx:  Record{"S": map[string]interface{}{"A": map[string]interface{}{"age": float64(2)}}},
			want: true,
		},
		// Quoted field names
		{
			name: "quoted field",
			expr: "`S.A.age at diagnosis` > 50",
			ctx:  rec("S.A.age at diagnosis", float64(60)),
			want: true,
		},
		// Error cases
		{
			name:    "unknown field",
			expr:    "missing > 10",
			ctx:     rec("S.A.age", float64(100)),
			wantErr: true,
		},
		{
			name:    "in requires list",
			expr:    `S.B.code in "a"`,
			ctx:     rec("S.B.code", "a"),
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ast, err := Parse(tc.expr)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tc.expr, err)
			}
			got, err := Evaluate(ast, tc.ctx)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil (result=%v)", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []string{
		`"unterminated`,
		`S.A.age 1000`, // missing operator
		`S.A.code in ["a" "b"]`,
		`S.A.code is not`,
		``, // empty (will fail at comparison level)
	}
	for _, expr := range cases {
		t.Run(expr, func(t *testing.T) {
			_, err := Parse(expr)
			if err == nil {
				t.Errorf("expected parse error for %q, got nil", expr)
			}
		})
	}
}
