package observability

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRules struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Rules []struct {
			Alert       string            `yaml:"alert"`
			Expr        string            `yaml:"expr"`
			For         string            `yaml:"for"`
			Labels      map[string]string `yaml:"labels"`
			Annotations map[string]string `yaml:"annotations"`
		} `yaml:"rules"`
	} `yaml:"groups"`
}

var metricName = regexp.MustCompile(`backoffice_[a-z_]+`)

func loadBillingRules(t *testing.T) alertRules {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "billing.yml"))
	require.NoError(t, err)
	var rules alertRules
	require.NoError(t, yaml.Unmarshal(data, &rules))
	require.Len(t, rules.Groups, 1)
	require.Equal(t, "billing", rules.Groups[0].Name)
	return rules
}

func TestBillingAlertsLinkRunbookSections(t *testing.T) {
	rules := loadBillingRules(t)
	runbook, err := os.ReadFile(filepath.Join("..", "..", "docs", "runbook-billing.md"))
	require.NoError(t, err)

	want := map[string]string{
		"HighErrorRate":         "critical",
		"PaymentRejectionSpike": "warning",
		"StatusRefreshFailing":  "warning",
	}
	require.Len(t, rules.Groups[0].Rules, len(want))
	for _, rule := range rules.Groups[0].Rules {
		severity, ok := want[rule.Alert]
		require.True(t, ok, "unexpected alert %s", rule.Alert)
		assert.Equal(t, severity, rule.Labels["severity"], rule.Alert)
		assert.NotEmpty(t, rule.For, rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		assert.NotEmpty(t, rule.Annotations["description"], rule.Alert)

		file, anchor, found := strings.Cut(rule.Annotations["runbook"], "#")
		require.True(t, found, rule.Alert)
		assert.Equal(t, "docs/runbook-billing.md", file)
		assert.Contains(t, string(runbook), "\n## "+anchor+"\n", "runbook section for %s", rule.Alert)
	}
}

func TestBillingAlertsQueryExportedMetrics(t *testing.T) {
	m := NewMetrics()
	m.Billing().PaymentRejected(RejectOverpayment)
	_ = m.Jobs().Track("invoices:refresh-status").End(assert.AnError)

	families, err := m.registry.Gather()
	require.NoError(t, err)
	// Request counters only appear after the first request.
	exported := map[string]bool{"backoffice_http_requests_total": true}
	for _, f := range families {
		exported[f.GetName()] = true
	}

	for _, rule := range loadBillingRules(t).Groups[0].Rules {
		for _, name := range metricName.FindAllString(rule.Expr, -1) {
			assert.True(t, exported[name], "%s queries unknown metric %s", rule.Alert, name)
		}
	}
}
