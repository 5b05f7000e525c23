package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "SELECT 1", []string{"SELECT 1"}},
		{"trailing semicolon", "SELECT 1;", []string{"SELECT 1"}},
		{"two", "SELECT 1; SELECT 2", []string{"SELECT 1", "SELECT 2"}},
		{"empty", " ; ;\n", nil},
		{"semicolon in string", "SELECT ';'; SELECT 2", []string{"SELECT ';'", "SELECT 2"}},
		{"escaped quote", "SELECT 'it''s;' AS v", []string{"SELECT 'it''s;' AS v"}},
		{"quoted identifiers", "SELECT \"a;b\", [c;d], `e;f` FROM t", []string{"SELECT \"a;b\", [c;d], `e;f` FROM t"}},
		{"line comment", "-- one; two\nSELECT 1", []string{"-- one; two\nSELECT 1"}},
		{"block comment", "/* ; */ SELECT 1 ;", []string{"/* ; */ SELECT 1"}},
		{"comment only tail", "SELECT 1; -- done", []string{"SELECT 1"}},
		{
			"trigger body",
			"CREATE TRIGGER tr AFTER INSERT ON t BEGIN INSERT INTO u VALUES (1); DELETE FROM v; END; SELECT 1",
			[]string{"CREATE TRIGGER tr AFTER INSERT ON t BEGIN INSERT INTO u VALUES (1); DELETE FROM v; END", "SELECT 1"},
		},
		{
			"case inside trigger body",
			"CREATE TRIGGER tr AFTER INSERT ON t BEGIN UPDATE t SET a = CASE WHEN new.a > 0 THEN 1 ELSE 0 END; END; SELECT 1",
			[]string{"CREATE TRIGGER tr AFTER INSERT ON t BEGIN UPDATE t SET a = CASE WHEN new.a > 0 THEN 1 ELSE 0 END; END", "SELECT 1"},
		},
		{
			"nested case inside trigger body",
			"CREATE TRIGGER tr AFTER INSERT ON t BEGIN SELECT CASE WHEN 1 THEN CASE 2 WHEN 2 THEN 3 END END; END; SELECT 1",
			[]string{"CREATE TRIGGER tr AFTER INSERT ON t BEGIN SELECT CASE WHEN 1 THEN CASE 2 WHEN 2 THEN 3 END END; END", "SELECT 1"},
		},
		{
			"temp trigger",
			"create temp trigger tr after delete on t begin select 1; end",
			[]string{"create temp trigger tr after delete on t begin select 1; end"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitStatements(tt.input))
		})
	}
}
