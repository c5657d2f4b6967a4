package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"feederpool/internal/model"
)

// Summary aggregates one depositor's flows over an event stream.
type Summary struct {
	Depositor   string
	Deposited   *big.Int
	Withdrawn   *big.Int
	Interest    *big.Int
	Deposits    int
	Withdrawals int
}

// Reporter folds a pool event JSONL stream into per-depositor summaries and
// renders amounts at the configured asset precision.
type Reporter struct {
	decimals int32
	logger   *zap.Logger
}

func NewReporter(decimals uint8, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{decimals: int32(decimals), logger: logger}
}

// Run reads events from inputPath and writes the rendered report to out.
func (r *Reporter) Run(inputPath string, out io.Writer) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	summaries := make(map[string]*Summary)
	var total, folded, failed int

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var event model.PoolEvent
		if err := json.Unmarshal(line, &event); err != nil {
			failed++
			r.logger.Warn("decode event", zap.Error(err))
			continue
		}

		switch event.Type {
		case model.EventDeposit, model.EventWithdraw:
		default:
			continue
		}

		summary := summaries[event.Depositor]
		if summary == nil {
			summary = &Summary{
				Depositor: event.Depositor,
				Deposited: new(big.Int),
				Withdrawn: new(big.Int),
				Interest:  new(big.Int),
			}
			summaries[event.Depositor] = summary
		}

		amount, ok := new(big.Int).SetString(event.Amount, 10)
		if !ok {
			failed++
			r.logger.Warn("bad amount", zap.String("id", event.ID), zap.String("amount", event.Amount))
			continue
		}

		if event.Type == model.EventDeposit {
			summary.Deposited.Add(summary.Deposited, amount)
			summary.Deposits++
		} else {
			summary.Withdrawn.Add(summary.Withdrawn, amount)
			summary.Withdrawals++
			if interest, ok := new(big.Int).SetString(event.Interest, 10); ok {
				summary.Interest.Add(summary.Interest, interest)
			}
		}
		folded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	depositors := make([]string, 0, len(summaries))
	for depositor := range summaries {
		depositors = append(depositors, depositor)
	}
	sort.Strings(depositors)

	for _, depositor := range depositors {
		summary := summaries[depositor]
		net := new(big.Int).Sub(summary.Withdrawn, summary.Deposited)
		_, err := fmt.Fprintf(out, "%s deposits=%d withdrawals=%d deposited=%s withdrawn=%s interest=%s net=%s\n",
			summary.Depositor,
			summary.Deposits,
			summary.Withdrawals,
			r.render(summary.Deposited),
			r.render(summary.Withdrawn),
			r.render(summary.Interest),
			r.render(net),
		)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	r.logger.Info("report complete",
		zap.Int("total", total),
		zap.Int("folded", folded),
		zap.Int("failed", failed),
		zap.Int("depositors", len(summaries)),
	)
	return nil
}

func (r *Reporter) render(value *big.Int) string {
	return decimal.NewFromBigInt(value, -r.decimals).String()
}
