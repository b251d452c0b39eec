package permissions

import "testing"

func TestRuleAllowTool(t *testing.T) {
	rule := AllowToolRule("Read")

	if !rule.Matches("Read", "any input") {
		t.Error("AllowTool should match any input")
	}
	if !rule.Matches("Read", "") {
		t.Error("AllowTool should match empty input")
	}
	if rule.Matches("Write", "any input") {
		t.Error("AllowTool must not match other tools")
	}
}

func TestRuleAllowPrefix(t *testing.T) {
	rule := AllowPrefixRule("Bash", "cd")

	tests := []struct {
		tool    string
		command string
		want    bool
	}{
		{"Bash", "cd /home", true},
		{"Bash", "cd", true},
		{"Bash", "  cd /home", true}, // leading whitespace trimmed
		{"Bash", "rm -rf", false},
		{"Write", "cd /home", false},
	}
	for _, tt := range tests {
		if got := rule.Matches(tt.tool, tt.command); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.tool, tt.command, got, tt.want)
		}
	}
}

func TestGlobalPermissions(t *testing.T) {
	global := NewGlobal()
	global.Add(AllowToolRule("Read"))
	global.Add(AllowPrefixRule("Bash", "git status"))

	if !global.Check("Read", "anything") {
		t.Error("Read should be allowed")
	}
	if !global.Check("Bash", "git status") {
		t.Error("git status should be allowed")
	}
	if global.Check("Bash", "rm -rf /") {
		t.Error("rm should not be allowed")
	}

	// Duplicates are skipped.
	global.Add(AllowToolRule("Read"))
	if len(global.Rules()) != 2 {
		t.Errorf("expected 2 rules after duplicate add, got %d", len(global.Rules()))
	}
}

func TestManagerHierarchy(t *testing.T) {
	global := NewGlobal()
	global.Add(AllowToolRule("Read"))

	manager := NewManagerWithLocalRules(global, "test-agent", []Rule{AllowToolRule("Grep")})
	manager.AddRule(AllowPrefixRule("Bash", "ls"), ScopeSession)

	if got := manager.Check("Bash", "ls -la"); got != Allowed {
		t.Errorf("session rule: got %v", got)
	}
	if got := manager.Check("Grep", "pattern"); got != Allowed {
		t.Errorf("local rule: got %v", got)
	}
	if got := manager.Check("Read", "file.txt"); got != Allowed {
		t.Errorf("global rule: got %v", got)
	}
	if got := manager.Check("Write", "file.txt"); got != AskUser {
		t.Errorf("no rule, interactive: got %v", got)
	}
}

func TestNonInteractiveDenies(t *testing.T) {
	manager := NewManager(NewGlobal(), "test-agent")
	manager.SetInteractive(false)

	if got := manager.Check("Bash", "rm -rf"); got != Denied {
		t.Errorf("non-interactive unmatched check: got %v, want Denied", got)
	}
}

func TestRememberAllowPolicy(t *testing.T) {
	manager := NewManager(NewGlobal(), "test-agent")

	// The shell tool is narrowed to the exact command.
	manager.RememberAllow("Bash", "ls", ScopeSession)
	rules := manager.SessionRules()
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if rules[0].RuleType != AllowPrefix || rules[0].Prefix != "ls" {
		t.Errorf("Bash remember should be a prefix rule: %+v", rules[0])
	}

	// Other tools get a whole-tool rule.
	manager.RememberAllow("Write", `{"file_path":"x"}`, ScopeSession)
	rules = manager.SessionRules()
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[1].RuleType != AllowTool || rules[1].ToolName != "Write" {
		t.Errorf("non-Bash remember should be a tool rule: %+v", rules[1])
	}
}

func TestProcessDecision(t *testing.T) {
	manager := NewManager(NewGlobal(), "test-agent")

	if !manager.ProcessDecision("Write", "", DecisionAllow, ScopeSession) {
		t.Error("Allow should permit")
	}
	if len(manager.SessionRules()) != 0 {
		t.Error("one-time allow must not store a rule")
	}

	if manager.ProcessDecision("Write", "", DecisionDeny, ScopeSession) {
		t.Error("Deny should not permit")
	}

	if !manager.ProcessDecision("Write", "", DecisionAlwaysAllow, ScopeSession) {
		t.Error("AlwaysAllow should permit")
	}
	if got := manager.Check("Write", "anything"); got != Allowed {
		t.Errorf("rule from AlwaysAllow should match: got %v", got)
	}
}

func TestGlobalSharedAcrossManagers(t *testing.T) {
	global := NewGlobal()
	manager1 := NewManager(global, "agent1")
	manager2 := NewManager(global, "agent2")

	manager1.AddRule(AllowToolRule("Read"), ScopeGlobal)

	if got := manager2.Check("Read", "file"); got != Allowed {
		t.Errorf("global rule should be visible to all managers: got %v", got)
	}
}

func TestClearSessionRules(t *testing.T) {
	manager := NewManager(NewGlobal(), "test-agent")
	manager.AddRule(AllowToolRule("Read"), ScopeSession)
	manager.ClearSessionRules()
	if len(manager.SessionRules()) != 0 {
		t.Error("session rules should be cleared")
	}
}
