package help_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/monkey/pkg/help"
	"github.com/thomasrohde/monkey/pkg/stdlib"
)

func TestQUICKREFNonEmpty(t *testing.T) {
	if len(help.QUICKREF) == 0 {
		t.Fatal("QUICKREF is empty")
	}
}

func TestQUICKREFListsTopics(t *testing.T) {
	for _, topic := range help.TopicList {
		if !strings.Contains(help.QUICKREF, topic) {
			t.Errorf("QUICKREF does not mention topic %q", topic)
		}
	}
}

func TestTopicListMatchesTopics(t *testing.T) {
	for _, name := range help.TopicList {
		if _, ok := help.Topics[name]; !ok {
			t.Errorf("TopicList entry %q not in Topics map", name)
		}
	}
	if len(help.Topics) != len(help.TopicList) {
		t.Errorf("expected %d topics, got %d", len(help.TopicList), len(help.Topics))
	}
}

func TestTopicsNonEmpty(t *testing.T) {
	for name, content := range help.Topics {
		if len(content) == 0 {
			t.Errorf("topic %q has empty content", name)
		}
	}
}

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"syntax", "syntax"},
		{"SCOPE", "scope"},
		{"ex", "examples"},
		{"bud", "budget"},
		{"err", "errors"},
		{"r", "repl"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			name, content, err := help.MatchTopic(tt.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.want {
				t.Errorf("expected %q, got %q", tt.want, name)
			}
			if content == "" {
				t.Error("expected non-empty content")
			}
		})
	}
}

func TestMatchTopicFailures(t *testing.T) {
	for _, q := range []string{"nonexistent", "", "b"} {
		if _, _, err := help.MatchTopic(q); err == nil {
			t.Errorf("expected error for %q", q)
		}
	}
	_, _, err := help.MatchTopic("b")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguity error, got %v", err)
	}
}

func TestErrorsTopicListsEveryCode(t *testing.T) {
	for _, code := range []string{"E_LEX", "E_PARSE", "E_UNBOUND", "E_DUP_BINDING", "E_TYPE",
		"E_UNKNOWN_OP", "E_NOT_FN", "E_ARITY", "E_DIV_ZERO", "E_FN", "E_BUDGET", "E_IO", "E_CONFIG"} {
		if !strings.Contains(help.Topics["errors"], code) {
			t.Errorf("errors topic missing %s", code)
		}
	}
}

func TestRunValidationIsDocumented(t *testing.T) {
	if !strings.Contains(help.QUICKREF, "monkey run <file|-> [--check]") {
		t.Error("quick reference should list run --check")
	}
	if !strings.Contains(help.Topics["errors"], `"monkey run --check"`) {
		t.Error("errors topic should explain when run reports static errors")
	}
}

func TestBuiltinIndex(t *testing.T) {
	names := stdlib.Defaults().Names()
	idx := help.BuiltinIndex(names)
	if !strings.Contains(idx, "Total: 11 functions") {
		t.Errorf("unexpected total:\n%s", idx)
	}
	for _, name := range names {
		if !strings.Contains(idx, "  "+name+"(") {
			t.Errorf("index missing documented entry for %s", name)
		}
	}
}

func TestBuiltinIndexUndocumentedName(t *testing.T) {
	idx := help.BuiltinIndex([]string{"zeta"})
	if !strings.Contains(idx, "  zeta\n") || !strings.Contains(idx, "Total: 1 functions") {
		t.Errorf("unexpected index:\n%s", idx)
	}
}
