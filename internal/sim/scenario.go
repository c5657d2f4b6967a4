package sim

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Scenario describes the world the simulator builds before applying the
// operation stream: pool and master identities, reward rate, and funded
// depositors. An empty whitelist means the pool is open to any caller.
type Scenario struct {
	Pool struct {
		Address    string   `yaml:"address"`
		Liquidator string   `yaml:"liquidator"`
		Whitelist  []string `yaml:"whitelist"`
	} `yaml:"pool"`
	Master struct {
		Address string `yaml:"address"`
	} `yaml:"master"`
	Reward struct {
		RatePerSecond string `yaml:"rate_per_second"`
	} `yaml:"reward"`
	Depositors []ScenarioDepositor `yaml:"depositors"`
}

// ScenarioDepositor funds one depositor with an asset balance; the pool is
// approved to pull up to that balance.
type ScenarioDepositor struct {
	Address string `yaml:"address"`
	Balance string `yaml:"balance"`
}

// LoadScenario reads and validates a scenario YAML file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}

	if _, err := parseAddress(scenario.Pool.Address); err != nil {
		return Scenario{}, fmt.Errorf("pool address: %w", err)
	}
	if _, err := parseAddress(scenario.Pool.Liquidator); err != nil {
		return Scenario{}, fmt.Errorf("liquidator address: %w", err)
	}
	if _, err := parseAddress(scenario.Master.Address); err != nil {
		return Scenario{}, fmt.Errorf("master address: %w", err)
	}
	for _, member := range scenario.Pool.Whitelist {
		if _, err := parseAddress(member); err != nil {
			return Scenario{}, fmt.Errorf("whitelist member: %w", err)
		}
	}
	if scenario.Reward.RatePerSecond != "" {
		if _, err := parseAmount(scenario.Reward.RatePerSecond); err != nil {
			return Scenario{}, fmt.Errorf("reward rate: %w", err)
		}
	}
	for _, depositor := range scenario.Depositors {
		if _, err := parseAddress(depositor.Address); err != nil {
			return Scenario{}, fmt.Errorf("depositor address: %w", err)
		}
		if _, err := parseAmount(depositor.Balance); err != nil {
			return Scenario{}, fmt.Errorf("depositor %s balance: %w", depositor.Address, err)
		}
	}

	return scenario, nil
}

func parseAddress(input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

func parseAmount(input string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", input)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative: %q", input)
	}
	return amount, nil
}
