package analyze

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docmark/internal/findings"
)

// estimatedLayoutConfidence is used for pattern hits on tokens whose
// coordinates came from the character-width heuristic.
const estimatedLayoutConfidence = 0.6

// Rule binds one category to the regexes that indicate it.
type Rule struct {
	Category findings.Category `yaml:"category"`
	Patterns []string          `yaml:"patterns"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules is the built-in pattern bank of credit-report problem
// indicators. A YAML rules file replaces it wholesale.
func DefaultRules() []Rule {
	return []Rule{
		{Category: findings.CatCollection, Patterns: []string{
			`\bCOLLECTION\b`,
			`Collection Agency`,
			`PORTFOLIO RECOVERY`,
			`CAVALRY PORTFOLIO`,
			`Debt Buyer`,
		}},
		{Category: findings.CatChargeOff, Patterns: []string{
			`CHARGE[\s\-_]?OFF`,
			`Charged Off`,
			`Written Off`,
		}},
		{Category: findings.CatLatePayment, Patterns: []string{
			`\b(30|60|90|120|150|180)\s*Days?\s*Past\s*Due`,
			`\b(30|60|90|120|150|180)\s*Days?\s*Late`,
			`PAST[\s\-_]?DUE`,
		}},
		{Category: findings.CatTruncatedAccount, Patterns: []string{
			`[X\*]{4,}[\s\-]?\d{4}`,
			`\.{3,}\d{4}`,
		}},
		{Category: findings.CatHighUtilization, Patterns: []string{
			`(8[0-9]|9[0-9]|100)%?\s*Utilization`,
			`Over[\s\-]?Limit`,
			`Maxed[\s\-]?Out`,
		}},
		{Category: findings.CatDerogatory, Patterns: []string{
			`DEROGATORY`,
			`DELINQUENT`,
			`DEFAULT`,
			`REPOSSESSION`,
			`FORECLOSURE`,
			`BANKRUPTCY`,
		}},
	}
}

// LoadRules reads a YAML rule file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s defines no rules", path)
	}
	return rf.Rules, nil
}
