package observability

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestGateAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "gate.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var rules alertSpec
	if err := yaml.Unmarshal(data, &rules); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}

	if len(rules.Groups) == 0 {
		t.Fatal("expected at least one alert group")
	}

	var gateGroup *alertGroup
	for i := range rules.Groups {
		if rules.Groups[i].Name == "access-gate" {
			gateGroup = &rules.Groups[i]
			break
		}
	}
	if gateGroup == nil {
		t.Fatal("access-gate alert group missing")
	}

	expected := map[string]struct {
		severity string
		runbook  string
	}{
		"GateUpstreamUnavailable":  {severity: "critical", runbook: "docs/runbook-gate.md#upstream-unavailable"},
		"GateForbiddenSpike":       {severity: "warning", runbook: "docs/runbook-gate.md#forbidden-spike"},
		"GateUnauthenticatedBurst": {severity: "warning", runbook: "docs/runbook-gate.md#unauthenticated-burst"},
	}

	if len(gateGroup.Rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(gateGroup.Rules))
	}

	for _, rule := range gateGroup.Rules {
		want, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != want.severity {
			t.Fatalf("rule %s severity mismatch: %s", rule.Alert, rule.Labels["severity"])
		}
		if rule.Annotations["runbook"] != want.runbook {
			t.Fatalf("rule %s runbook mismatch: %s", rule.Alert, rule.Annotations["runbook"])
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
			t.Fatalf("rule %s must include summary and description annotations", rule.Alert)
		}
		if rule.Expr == "" {
			t.Fatalf("rule %s must define an expression", rule.Alert)
		}
		if rule.For == "" {
			t.Fatalf("rule %s must define a hold duration", rule.Alert)
		}
	}
}
